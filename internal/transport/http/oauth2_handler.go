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

package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oauthforge/oauth2"
	"github.com/oauthforge/oauth2/internal/observability/logger"
	"github.com/oauthforge/oauth2/model"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Authorize drives the §4.1/§4.4 GET /authorize pipeline. The resource
// owner must already be authenticated (AuthenticateMiddleware runs ahead
// of this route with no required scope); this
// handler auto-grants once that identity is known, skipping a consent
// screen — a host wanting explicit consent wires its own UserAuthenticator
// that renders one instead of this package's bearer-token-only adapter.
//
// @Summary OAuth2 Authorize Endpoint
// @Description Starts the authorization code flow (RFC 6749 Section 4.1)
// @Tags OAuth2
// @Produce json
// @Param client_id query string true "Client ID"
// @Param redirect_uri query string true "Redirect URI"
// @Param response_type query string true "Response Type (must be 'code')"
// @Param scope query string false "Scopes"
// @Param state query string true "Opaque CSRF-binding value"
// @Success 302 {string} string "Redirects to redirect_uri with code and state"
// @Router /authorize [get]
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "oauth2.authorize")
	defer span.End()
	r = r.WithContext(ctx)

	req := decodeRequest(r)

	userID := GetUserID(r.Context())
	resp, err := h.server.Authorize(r.Context(), req, oauth2.WithUserAuthenticator(oauth2.UserAuthenticatorFunc(
		func(ctx context.Context, req *model.Request) (model.User, error) {
			return userID, nil
		},
	)))

	if err != nil {
		oe := model.Wrap(err)
		h.auditLogger.AuthorizationDenied(r.Context(), GetUserID(r.Context()), req.Param("client_id"), oe.Error(), getIPAddress(r))
		if resp == nil {
			resp = errorResponse(oe)
		}
	} else {
		h.auditLogger.AuthorizationGranted(r.Context(), GetUserID(r.Context()), req.Param("client_id"), req.Param("scope"), getIPAddress(r))
	}

	writeResponse(w, resp)
}

// Token drives the §4.1/§4.2 POST /token pipeline for every registered
// grant_type (the four RFC 6749 built-ins plus any extension grants the
// host registered via oauth2.WithExtensionGrant).
//
// @Summary OAuth2 Token Endpoint
// @Description Exchanges a grant for an access token (RFC 6749 Section 4)
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Grant Type"
// @Success 200 {object} model.Token
// @Failure 400 {object} model.ErrorBody
// @Failure 401 {object} model.ErrorBody
// @Router /token [post]
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "oauth2.token")
	defer span.End()
	r = r.WithContext(ctx)

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := decodeRequest(r)
	grantType := req.Param("grant_type")

	resp, err := h.server.Token(r.Context(), req)
	if err != nil {
		oe := model.Wrap(err)
		clientID := req.Param("client_id")
		if clientID == "" {
			clientID, _, _ = r.BasicAuth()
		}
		if oe.Kind == model.KindInvalidClient {
			h.auditLogger.ClientAuthFailed(r.Context(), clientID, oe.Error(), getIPAddress(r))
		} else {
			h.auditLogger.TokenIssuanceFailed(r.Context(), clientID, grantType, oe.Error(), getIPAddress(r))
		}
		slog.ErrorContext(r.Context(), "token request failed",
			logger.Error(oe), logger.GrantType(grantType), logger.ClientID(clientID))
		h.tokenErrors.Add(r.Context(), 1, otelmetric.WithAttributes(attribute.String("code", string(oe.Kind))))
		if resp == nil {
			resp = errorResponse(oe)
		}
		writeResponse(w, resp)
		return
	}

	if tok, ok := resp.Body.(*model.Token); ok {
		clientID := ""
		if tok.Client != nil {
			clientID = tok.Client.ID
		}
		h.auditLogger.TokenIssued(r.Context(), userIDString(tok.User), clientID, grantType, getIPAddress(r))
		h.tokensIssued.Add(r.Context(), 1, otelmetric.WithAttributes(attribute.String("grant_type", grantType)))
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeResponse(w, resp)
}

// Resource is a demo protected endpoint guarded by AuthenticateMiddleware,
// exercising the §4.5 bearer-token validation pipeline end to end (RFC
// 6750).
//
// @Summary Protected resource example
// @Description Returns the identity resolved from the presented bearer token
// @Tags Resource
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} model.ErrorBody
// @Router /resource [get]
func (h *Handler) Resource(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": GetUserID(r.Context()),
	})
}

// decodeRequest builds a transport-agnostic model.Request from an
// *http.Request, parsing form data for POSTs exactly as the core's own
// tests do (see server_test.go's request builders).
func decodeRequest(r *http.Request) *model.Request {
	r.ParseForm()
	return &model.Request{
		Method:      r.Method,
		Headers:     map[string][]string(r.Header),
		Query:       r.URL.Query(),
		Body:        r.PostForm,
		ContentType: r.Header.Get("Content-Type"),
	}
}

// writeResponse copies a model.Response onto an http.ResponseWriter,
// handling both the direct JSON/status path and the §4.1.1 redirect path.
func writeResponse(w http.ResponseWriter, resp *model.Response) {
	if resp == nil {
		respondError(w, http.StatusInternalServerError, "no response produced")
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.Redirect != "" {
		w.Header().Set("Location", resp.Redirect)
		w.WriteHeader(resp.Status)
		return
	}
	respondJSON(w, resp.Status, resp.Body)
}

// errorResponse renders a *model.Error as a direct JSON response, for the
// pipeline stages that return (nil, err) rather than a pre-built Response
// (see token_handler.go and the early-exit paths in authorize_handler.go).
func errorResponse(oe *model.Error) *model.Response {
	return &model.Response{Status: oe.Code, Body: oe.Body()}
}

// requireScopeIfSet adapts an optional scope string to oauth2.RequireScope,
// returning a no-op AuthenticateOption when scope is empty so callers
// don't need to branch.
func requireScopeIfSet(scope string) oauth2.AuthenticateOption {
	if scope == "" {
		return func(*oauth2.AuthenticateOptions) {}
	}
	return oauth2.RequireScope(scope)
}

// userIDString renders a model.User opaque identity as a string for
// logging and context propagation; models are free to hand back any
// comparable value (see examplemodel/memorymodel's passwordUser).
func userIDString(u model.User) string {
	if u == nil {
		return ""
	}
	if s, ok := u.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", u)
}
