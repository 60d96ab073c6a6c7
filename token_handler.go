// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oauth2

import (
	"context"
	"net/http"
	"strings"

	"github.com/oauthforge/oauth2/grants"
	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/pkg/validators"
	"github.com/oauthforge/oauth2/tokentypes"
)

// TokenHandler implements the POST /token pipeline (§4.2): client
// authentication, grant dispatch, and Bearer token issuance.
type TokenHandler struct {
	model   model.Model
	grants  map[string]grants.Factory
	options TokenOptions
}

// NewTokenHandler constructs a TokenHandler. Per §9's duck-typed-model
// design note, construction itself performs no capability assertion — the
// model's capabilities are grant-specific and are asserted by the grant
// the request actually dispatches to.
func NewTokenHandler(m model.Model, grantRegistry map[string]grants.Factory, options TokenOptions) *TokenHandler {
	return &TokenHandler{model: m, grants: grantRegistry, options: options}
}

// Handle runs the full §4.2 pipeline and returns the JSON response to
// send back, or a tagged *model.Error.
func (h *TokenHandler) Handle(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req.Method != http.MethodPost {
		return nil, model.New(model.KindInvalidRequest, "POST is required")
	}
	if !strings.HasPrefix(req.ContentType, "application/x-www-form-urlencoded") {
		return nil, model.New(model.KindInvalidRequest, "Content-Type must be application/x-www-form-urlencoded")
	}

	grantType := req.Param("grant_type")
	requiresAuth := h.options.requiresClientAuthentication(grantType)

	// Step 1: resolve client credentials.
	creds, err := resolveClientCredentials(req)
	if err != nil {
		return nil, err
	}
	if creds.id == "" {
		return nil, model.New(model.KindInvalidClient, "no client credentials presented")
	}

	// Step 2: syntactic validation.
	if !validators.VSCHAR(creds.id) {
		return nil, model.New(model.KindInvalidRequest, "client_id contains invalid characters")
	}
	if creds.secretSent && !validators.VSCHAR(creds.secret) {
		return nil, model.New(model.KindInvalidRequest, "client_secret contains invalid characters")
	}
	if creds.secret == "" && requiresAuth {
		return nil, model.New(model.KindInvalidRequest, "client_secret is required")
	}

	// Step 3: load client.
	getter, err := model.Require[model.ClientStore](h.model, "ClientStore (GetClient)")
	if err != nil {
		return nil, err
	}
	client, err := getter.GetClient(ctx, creds.id, creds.secret)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if client == nil {
		oauthErr := model.New(model.KindInvalidClient, "client authentication failed")
		if creds.viaHeader {
			oauthErr = oauthErr.WithStatus(http.StatusUnauthorized)
			realm := h.options.Realm
			if realm == "" {
				realm = "Service"
			}
			return &model.Response{
				Status:  oauthErr.Code,
				Body:    oauthErr.Body(),
				Headers: map[string]string{"WWW-Authenticate": `Basic realm="` + realm + `"`},
			}, oauthErr
		}
		return nil, oauthErr
	}

	// Step 4: client.grants must be a non-empty collection.
	if len(client.Grants) == 0 {
		return nil, model.New(model.KindServerError, "client has no grants configured")
	}

	// Step 5: dispatch grant.
	if grantType == "" {
		return nil, model.New(model.KindInvalidRequest, "grant_type is required")
	}
	if !validators.NCHAR(grantType) && !validators.URI(grantType) {
		return nil, model.New(model.KindInvalidRequest, "grant_type contains invalid characters")
	}
	factory, ok := h.grants[grantType]
	if !ok {
		return nil, model.New(model.KindUnsupportedGrant, "unsupported grant_type "+grantType)
	}
	if !client.HasGrant(grantType) {
		return nil, model.New(model.KindUnauthorizedClient, "client is not authorized for grant_type "+grantType)
	}

	// Step 6: invoke grant.
	grant := factory(grants.Config{
		AccessTokenLifetime:        h.options.AccessTokenLifetime,
		RefreshTokenLifetime:       h.options.RefreshTokenLifetime,
		Model:                      h.model,
		AlwaysIssueNewRefreshToken: h.options.AlwaysIssueNewRefreshToken,
	})
	tok, err := grant.Handle(ctx, req, client)
	if err != nil {
		return nil, err
	}

	// Step 7: wrap.
	if tok == nil || tok.AccessToken == "" || tok.Client == nil || tok.User == nil {
		return nil, model.New(model.KindServerError, "grant returned an incomplete token")
	}

	// Step 8: serialize.
	body := tokentypes.Encode(tok, h.options.AllowExtendedTokenAttributes, timeNow())
	return &model.Response{
		Status: http.StatusOK,
		Body:   body,
		Headers: map[string]string{
			"Cache-Control": "no-store",
			"Pragma":        "no-cache",
		},
	}, nil
}
