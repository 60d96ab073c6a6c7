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

import "context"

// Model is the host-supplied persistence + policy adapter. It carries no
// methods of its own — a host's model is "polymorphic over its capability
// set" (§4.6, §9): it implements whichever of the interfaces below its
// supported grants and handlers require, and nothing else. Handlers and
// grants assert the specific capability they need via Require and fail
// fast with KindInvalidArgument when it is missing, rather than requiring
// hosts to implement a single all-encompassing interface.
type Model any

// ClientStore is required by the token and authorize pipelines.
type ClientStore interface {
	// GetClient returns the client registered under id. secret is passed
	// through exactly as received — hashing/comparison is the model's
	// job (§9 Design Notes: constant-time compare is a model obligation).
	// A nil, nil return means "not found".
	GetClient(ctx context.Context, id, secret string) (*Client, error)
}

// AccessTokenSaver is required by every token-issuing grant.
type AccessTokenSaver interface {
	SaveToken(ctx context.Context, token *Token, client *Client, user User) (*Token, error)
}

// AccessTokenGetter is required by AuthenticateHandler.
type AccessTokenGetter interface {
	GetAccessToken(ctx context.Context, accessToken string) (*Token, error)
}

// ScopeVerifier is required by AuthenticateHandler whenever a scope is
// enforced.
type ScopeVerifier interface {
	VerifyScope(ctx context.Context, token *Token, scope string) (bool, error)
}

// AuthorizationCodeGetter is required by the authorization_code grant.
type AuthorizationCodeGetter interface {
	GetAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, error)
}

// AuthorizationCodeRevoker is required by the authorization_code grant.
type AuthorizationCodeRevoker interface {
	// RevokeAuthorizationCode returns true if the code was revoked. A
	// false return (without error) is treated as invalid_grant (§4.3.1e).
	RevokeAuthorizationCode(ctx context.Context, code string) (bool, error)
}

// AuthorizationCodeSaver is required by AuthorizeHandler.
type AuthorizationCodeSaver interface {
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode, client *Client, user User) (*AuthorizationCode, error)
}

// PasswordUserGetter is required by the password grant.
type PasswordUserGetter interface {
	GetUser(ctx context.Context, username, password string) (User, error)
}

// ClientUserGetter is used by the client_credentials grant when the model
// implements it. Without it the grant issues a token with no user, and
// TokenHandler then rejects that token as incomplete (server_error).
type ClientUserGetter interface {
	GetUserFromClient(ctx context.Context, client *Client) (User, error)
}

// RefreshTokenGetter is required by the refresh_token grant.
type RefreshTokenGetter interface {
	GetRefreshToken(ctx context.Context, refreshToken string) (*RefreshToken, error)
}

// RefreshTokenRevoker is required by the refresh_token grant when
// rotation is enabled.
type RefreshTokenRevoker interface {
	RevokeToken(ctx context.Context, refreshToken string) (bool, error)
}

// AccessTokenGenerator is an optional override; when present and it does
// not return a falsy (empty) value, its output is used instead of the
// built-in cryptographically random generator (§4.3).
type AccessTokenGenerator interface {
	GenerateAccessToken(ctx context.Context, client *Client, user User, scope string) (string, error)
}

// RefreshTokenGenerator is the refresh-token analog of AccessTokenGenerator.
type RefreshTokenGenerator interface {
	GenerateRefreshToken(ctx context.Context, client *Client, user User, scope string) (string, error)
}

// AuthorizationCodeGenerator is the authorization-code analog of
// AccessTokenGenerator, used by AuthorizeHandler.
type AuthorizationCodeGenerator interface {
	GenerateAuthorizationCode(ctx context.Context, client *Client, user User) (string, error)
}

// ScopeValidator is an optional override letting the model reject or
// canonicalize a requested scope; returning ok=false maps to
// invalid_scope. Scope splitting itself (e.g. on spaces) remains the
// model's responsibility (§9 Open Questions); the only place the core
// splits scope is the refresh_token grant's check that a requested scope
// is a space-delimited subset of the originally granted one.
type ScopeValidator interface {
	ValidateScope(ctx context.Context, client *Client, user User, scope string) (validated string, ok bool, err error)
}

// Require type-asserts m to T, returning a KindInvalidArgument error
// naming the missing capability when the assertion fails. Handlers and
// grants call this while handling a request, at the point where they
// first need the capability; constructing a handler asserts nothing.
func Require[T any](m Model, capability string) (T, error) {
	v, ok := m.(T)
	if !ok {
		var zero T
		return zero, Newf(KindInvalidArgument, "model does not implement required capability %s", capability)
	}
	return v, nil
}

// Optional type-asserts m to T, returning the zero value and ok=false
// without error when the capability is absent — used for the generator
// and scope-validator override points, which are never mandatory.
func Optional[T any](m Model) (T, bool) {
	v, ok := m.(T)
	return v, ok
}
