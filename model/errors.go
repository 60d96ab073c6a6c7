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

package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, wire-visible OAuth2 error name (RFC 6749 §5.2 / §4.1.2.1
// plus the RFC 6750 resource-side and host-configuration extensions this
// module adds).
type Kind string

const (
	KindInvalidRequest       Kind = "invalid_request"
	KindInvalidClient        Kind = "invalid_client"
	KindInvalidGrant         Kind = "invalid_grant"
	KindInvalidScope         Kind = "invalid_scope"
	KindInvalidToken         Kind = "invalid_token"
	KindUnauthorizedClient   Kind = "unauthorized_client"
	KindUnauthorizedRequest  Kind = "unauthorized_request"
	KindUnsupportedGrant     Kind = "unsupported_grant_type"
	KindUnsupportedResponse  Kind = "unsupported_response_type"
	KindAccessDenied         Kind = "access_denied"
	KindInsufficientScope    Kind = "insufficient_scope"
	KindServerError          Kind = "server_error"
	KindInvalidArgument      Kind = "invalid_argument"
)

// statusByKind is the HTTP status each taxonomy member maps to by default.
// invalid_client is special-cased to 401 by callers that presented
// credentials via the Authorization header (§4.2 step 3, §7).
var statusByKind = map[Kind]int{
	KindInvalidRequest:      http.StatusBadRequest,
	KindInvalidClient:       http.StatusBadRequest,
	KindInvalidGrant:        http.StatusBadRequest,
	KindInvalidScope:        http.StatusBadRequest,
	KindInvalidToken:        http.StatusUnauthorized,
	KindUnauthorizedClient:  http.StatusBadRequest,
	KindUnauthorizedRequest: http.StatusUnauthorized,
	KindUnsupportedGrant:    http.StatusBadRequest,
	KindUnsupportedResponse: http.StatusBadRequest,
	KindAccessDenied:        http.StatusBadRequest,
	KindInsufficientScope:   http.StatusForbidden,
	KindServerError:         http.StatusServiceUnavailable,
	KindInvalidArgument:     http.StatusInternalServerError,
}

// Error is the single tagged sum type every protocol-level fault in this
// module takes. It is returned, never panicked, by every core operation.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New builds a taxonomy error, deriving its HTTP status from kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Code: statusByKind[kind]}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches cause to a new server_error, for the "any non-OAuth
// throwable is wrapped as server_error" propagation rule (§4.2, §7).
func Wrap(cause error) *Error {
	var oe *Error
	if errors.As(cause, &oe) {
		return oe
	}
	return &Error{Kind: KindServerError, Message: cause.Error(), Code: statusByKind[KindServerError], Cause: cause}
}

// WithStatus overrides the default HTTP status, used by the invalid_client
// / Authorization-header 401 case (§4.2 step 3, §7, invariant 6).
func (e *Error) WithStatus(status int) *Error {
	e.Code = status
	return e
}

// ErrorBody is the JSON shape sent to the client on both direct-response and
// redirect error paths (§6, §7).
type ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Body renders e as the wire error body.
func (e *Error) Body() ErrorBody {
	return ErrorBody{Error: string(e.Kind), ErrorDescription: e.Message}
}

// IsProgrammerError reports whether e carries HTTP 500 — host
// misconfiguration such as a model missing a required capability. Per §7's
// propagation policy, these never leak through redirect parameters even
// when a redirect URI has already been resolved; they are always
// surfaced as a direct JSON/status response.
func (e *Error) IsProgrammerError() bool {
	return e.Code == http.StatusInternalServerError
}
