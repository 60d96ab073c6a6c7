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

	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/tokentypes"
)

// AuthenticateHandler implements resource-server-side bearer-token
// validation (§4.5): extraction, expiry/scope checks, and response header
// decoration.
type AuthenticateHandler struct {
	model   model.Model
	options AuthenticateOptions
}

// NewAuthenticateHandler constructs an AuthenticateHandler bound to m and
// options.
func NewAuthenticateHandler(m model.Model, options AuthenticateOptions) *AuthenticateHandler {
	return &AuthenticateHandler{model: m, options: options}
}

// Handle validates the bearer token carried by req and, on success,
// returns a Response decorated with the configured scope headers. The
// caller inspects the returned *model.Error's Kind to know whether to
// also emit WWW-Authenticate (Handle itself sets it on the Response).
func (h *AuthenticateHandler) Handle(ctx context.Context, req *model.Request) (*model.Response, error) {
	tok, err := h.authenticate(ctx, req)
	if err != nil {
		oauthErr := model.Wrap(err)
		return &model.Response{
			Status: oauthErr.Code,
			Body:   oauthErr.Body(),
			Headers: map[string]string{
				"WWW-Authenticate": tokentypes.WWWAuthenticate(h.realm(), oauthErr),
			},
		}, oauthErr
	}

	headers := map[string]string{}
	if h.options.AddAcceptedScopesHeader && h.options.Scope != "" {
		headers["X-Accepted-OAuth-Scopes"] = h.options.Scope
	}
	if h.options.AddAuthorizedScopesHeader && tok.Scope != "" {
		headers["X-OAuth-Scopes"] = tok.Scope
	}
	return &model.Response{Status: http.StatusOK, Body: tok, Headers: headers}, nil
}

// AuthenticateUser implements UserAuthenticator: AuthorizeHandler can
// delegate to an AuthenticateHandler directly, extracting the token's user
// rather than the full validation Response.
func (h *AuthenticateHandler) AuthenticateUser(ctx context.Context, req *model.Request) (model.User, error) {
	tok, err := h.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return tok.User, nil
}

func (h *AuthenticateHandler) authenticate(ctx context.Context, req *model.Request) (*model.Token, error) {
	token, err := tokentypes.Extract(req, h.options.AllowBearerTokensInQueryString)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, model.New(model.KindUnauthorizedRequest, "no bearer token presented")
	}

	getter, cerr := model.Require[model.AccessTokenGetter](h.model, "AccessTokenGetter (GetAccessToken)")
	if cerr != nil {
		return nil, cerr
	}
	tok, err := getter.GetAccessToken(ctx, token)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if tok == nil || tok.User == nil || tok.AccessTokenExpiresAt.IsZero() {
		return nil, model.New(model.KindInvalidToken, "access token is invalid")
	}
	if tok.Expired(timeNow()) {
		return nil, model.New(model.KindInvalidToken, "access token has expired")
	}

	if h.options.Scope != "" {
		verifier, cerr := model.Require[model.ScopeVerifier](h.model, "ScopeVerifier (VerifyScope)")
		if cerr != nil {
			return nil, cerr
		}
		ok, err := verifier.VerifyScope(ctx, tok, h.options.Scope)
		if err != nil {
			return nil, model.Wrap(err)
		}
		if !ok {
			return nil, model.New(model.KindInsufficientScope, "token lacks required scope "+h.options.Scope)
		}
	}

	return tok, nil
}

func (h *AuthenticateHandler) realm() string {
	if h.options.Realm != "" {
		return h.options.Realm
	}
	return "Service"
}
