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
	"net/url"

	"github.com/oauthforge/oauth2/grants"
	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/pkg/validators"
	"github.com/oauthforge/oauth2/responsetypes"
)

// AuthorizeHandler implements the GET|POST /authorize pipeline (§4.4):
// end-user authentication delegation, authorization-code issuance, and
// redirect construction for both the success and error paths.
type AuthorizeHandler struct {
	model   model.Model
	options AuthorizeOptions
}

// NewAuthorizeHandler constructs an AuthorizeHandler bound to m and options.
func NewAuthorizeHandler(m model.Model, options AuthorizeOptions) *AuthorizeHandler {
	return &AuthorizeHandler{model: m, options: options}
}

// AuthenticateUser lets an AuthorizeHandler itself serve as a
// UserAuthenticator is deliberately NOT implemented — authorizing and
// authenticating are distinct pipelines. Hosts that protect /authorize
// with a bearer token instead wire an *AuthenticateHandler, which does
// implement UserAuthenticator.

func (h *AuthorizeHandler) Handle(ctx context.Context, req *model.Request) (*model.Response, error) {
	clientID := req.Param("client_id")
	if clientID == "" {
		return nil, model.New(model.KindInvalidRequest, "client_id is required")
	}
	if !validators.VSCHAR(clientID) {
		return nil, model.New(model.KindInvalidRequest, "client_id contains invalid characters")
	}
	if h.options.UserAuthenticator == nil {
		return nil, model.New(model.KindInvalidArgument, "AuthorizeOptions.UserAuthenticator is required")
	}

	// Parallel fan-out (§5): client resolution and user-authentication
	// delegation are independent of one another. The code's expiry is
	// computed later, when the response type issues the code.
	type clientResult struct {
		client *model.Client
		err    error
	}
	type userResult struct {
		user model.User
		err  error
	}
	clientCh := make(chan clientResult, 1)
	userCh := make(chan userResult, 1)

	go func() {
		c, err := h.resolveClient(ctx, clientID)
		clientCh <- clientResult{c, err}
	}()
	go func() {
		u, err := h.options.UserAuthenticator.AuthenticateUser(ctx, req)
		userCh <- userResult{u, err}
	}()

	cr := <-clientCh
	ur := <-userCh

	// Errors before the redirect URI is resolved are never redirected to
	// an unvalidated location — they surface directly.
	if cr.err != nil {
		return nil, cr.err
	}
	client := cr.client

	requestedRedirect := req.Param("redirect_uri")
	if requestedRedirect != "" {
		if !validators.URI(requestedRedirect) {
			return nil, model.New(model.KindInvalidRequest, "redirect_uri is not a valid URI")
		}
		if !client.HasRedirectURI(requestedRedirect) {
			return nil, model.New(model.KindInvalidRequest, "redirect_uri is not registered for this client")
		}
	}
	redirectURI := requestedRedirect
	if redirectURI == "" {
		redirectURI = client.RedirectURIs[0]
	}

	// The redirect URI is now resolved: every error from here on redirects
	// instead of surfacing as a direct body/status response.
	state := req.Param("state")

	if req.Query != nil && req.Query.Get("allowed") == "false" {
		return h.errorRedirect(redirectURI, state, model.New(model.KindAccessDenied, "resource owner denied the request"))
	}

	if ur.err != nil {
		return h.errorRedirect(redirectURI, state, model.Wrap(ur.err))
	}
	user := ur.user
	if user == nil {
		return h.errorRedirect(redirectURI, state, model.New(model.KindServerError, "user authentication returned no user"))
	}

	if state == "" && !h.options.AllowEmptyState {
		return h.errorRedirect(redirectURI, state, model.New(model.KindInvalidRequest, "state is required"))
	}
	if state != "" && !validators.VSCHAR(state) {
		return h.errorRedirect(redirectURI, state, model.New(model.KindInvalidRequest, "state contains invalid characters"))
	}

	responseType := req.Param("response_type")
	if responseType == "" {
		return h.errorRedirect(redirectURI, state, model.New(model.KindInvalidRequest, "response_type is required"))
	}
	if responseType != responsetypes.Code {
		return h.errorRedirect(redirectURI, state, model.New(model.KindUnsupportedResponse, "unsupported response_type "+responseType))
	}

	scope := req.Param("scope")
	rt := responsetypes.New(responsetypes.Config{AuthorizationCodeLifetime: h.options.AuthorizationCodeLifetime, Model: h.model})
	code, err := rt.Issue(ctx, client, user, redirectURI, scope)
	if err != nil {
		return h.errorRedirect(redirectURI, state, err)
	}

	return h.successRedirect(redirectURI, state, code.Code), nil
}

func (h *AuthorizeHandler) resolveClient(ctx context.Context, clientID string) (*model.Client, error) {
	getter, err := model.Require[model.ClientStore](h.model, "ClientStore (GetClient)")
	if err != nil {
		return nil, err
	}
	client, err := getter.GetClient(ctx, clientID, "")
	if err != nil {
		return nil, model.Wrap(err)
	}
	if client == nil {
		return nil, model.New(model.KindInvalidClient, "unknown client")
	}
	if !client.HasGrant(grants.AuthorizationCode) {
		return nil, model.New(model.KindUnauthorizedClient, "client is not authorized for the authorization_code grant")
	}
	if len(client.RedirectURIs) == 0 {
		return nil, model.New(model.KindServerError, "client has no registered redirect URIs")
	}
	return client, nil
}

func (h *AuthorizeHandler) successRedirect(redirectURI, state, code string) *model.Response {
	u := appendRedirectParams(redirectURI, map[string]string{"code": code, "state": state})
	return &model.Response{Status: http.StatusFound, Redirect: u}
}

func (h *AuthorizeHandler) errorRedirect(redirectURI, state string, err error) (*model.Response, error) {
	oauthErr := model.Wrap(err)
	if oauthErr.IsProgrammerError() {
		// §7: code-500 errors never leak through redirect parameters.
		return nil, oauthErr
	}
	u := appendRedirectParams(redirectURI, map[string]string{
		"error":             string(oauthErr.Kind),
		"error_description": oauthErr.Message,
		"state":             state,
	})
	return &model.Response{Status: http.StatusFound, Redirect: u}, oauthErr
}

// appendRedirectParams appends params (skipping empty values) onto
// redirectURI, preserving any query parameters it already carries.
func appendRedirectParams(redirectURI string, params map[string]string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		// redirectURI was already validated upstream; this should be
		// unreachable, but fall back to the raw string rather than panic.
		return redirectURI
	}
	q := u.Query()
	for _, k := range []string{"code", "error", "error_description", "state"} {
		if v, ok := params[k]; ok && v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
