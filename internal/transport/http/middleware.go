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
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oauthforge/oauth2/internal/observability/logger"
	"github.com/oauthforge/oauth2/model"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthenticateMiddleware protects a resource route by running the
// server's Authenticate pipeline (RFC 6750) over the incoming request,
// writing the pipeline's own WWW-Authenticate-bearing error response on
// failure. On success the resolved user is attached to the request
// context under userIDKey for downstream handlers (see GetUserID).
func (h *Handler) AuthenticateMiddleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := h.tracer.Start(r.Context(), "oauth2.authenticate")
			defer span.End()
			r = r.WithContext(ctx)

			req := decodeRequest(r)

			resp, err := h.server.Authenticate(r.Context(), req, requireScopeIfSet(scope))
			if err != nil {
				h.auditLogger.TokenRejected(r.Context(), err.Error(), getIPAddress(r))
				writeResponse(w, resp)
				return
			}

			tok := resp.Body.(*model.Token)
			ctx := context.WithValue(r.Context(), userIDKey, userIDString(tok.User))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
