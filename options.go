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
	"time"

	"github.com/oauthforge/oauth2/model"
)

// UserAuthenticator resolves the resource owner an /authorize request acts
// on behalf of. A host wires its own session/consent-screen logic here, or
// reuses an *AuthenticateHandler (which implements this interface by
// extracting the bearer token's user) when /authorize is itself protected
// by a bearer token — matching the "our own handler vs. a direct user
// return" distinction called out in the component design.
type UserAuthenticator interface {
	AuthenticateUser(ctx context.Context, req *model.Request) (model.User, error)
}

// UserAuthenticatorFunc adapts a plain function to UserAuthenticator.
type UserAuthenticatorFunc func(ctx context.Context, req *model.Request) (model.User, error)

// AuthenticateUser calls f.
func (f UserAuthenticatorFunc) AuthenticateUser(ctx context.Context, req *model.Request) (model.User, error) {
	return f(ctx, req)
}

// TokenOptions configures a TokenHandler / Server.Token call.
type TokenOptions struct {
	AccessTokenLifetime          time.Duration
	RefreshTokenLifetime         time.Duration
	AllowExtendedTokenAttributes bool

	// RequireClientAuthentication maps a grant_type to whether it requires
	// client authentication. A grant absent from the map defaults to
	// "required" — the empty map therefore means "every grant requires
	// client authentication", never "none do".
	RequireClientAuthentication map[string]bool

	// AlwaysIssueNewRefreshToken controls refresh_token rotation; nil and
	// true both enable it, only explicit false disables it.
	AlwaysIssueNewRefreshToken *bool

	// Realm names the protection space reported in WWW-Authenticate.
	Realm string
}

// DefaultTokenOptions returns the §4.1 token() defaults.
func DefaultTokenOptions() TokenOptions {
	return TokenOptions{
		AccessTokenLifetime:          3600 * time.Second,
		RefreshTokenLifetime:         1209600 * time.Second,
		AllowExtendedTokenAttributes: false,
		RequireClientAuthentication:  map[string]bool{},
		Realm:                        "Service",
	}
}

// TokenOption mutates TokenOptions; passed per-call, overriding server
// defaults which in turn override the package defaults.
type TokenOption func(*TokenOptions)

func WithAccessTokenLifetime(d time.Duration) TokenOption {
	return func(o *TokenOptions) { o.AccessTokenLifetime = d }
}

func WithRefreshTokenLifetime(d time.Duration) TokenOption {
	return func(o *TokenOptions) { o.RefreshTokenLifetime = d }
}

func WithAllowExtendedTokenAttributes(allow bool) TokenOption {
	return func(o *TokenOptions) { o.AllowExtendedTokenAttributes = allow }
}

func WithRequireClientAuthentication(perGrant map[string]bool) TokenOption {
	return func(o *TokenOptions) { o.RequireClientAuthentication = perGrant }
}

func WithAlwaysIssueNewRefreshToken(always bool) TokenOption {
	return func(o *TokenOptions) { o.AlwaysIssueNewRefreshToken = &always }
}

func (o TokenOptions) requiresClientAuthentication(grantType string) bool {
	if v, ok := o.RequireClientAuthentication[grantType]; ok {
		return v
	}
	return true
}

// AuthorizeOptions configures an AuthorizeHandler / Server.Authorize call.
type AuthorizeOptions struct {
	AllowEmptyState           bool
	AuthorizationCodeLifetime time.Duration
	UserAuthenticator         UserAuthenticator
}

// DefaultAuthorizeOptions returns the §4.1 authorize() defaults.
func DefaultAuthorizeOptions() AuthorizeOptions {
	return AuthorizeOptions{
		AllowEmptyState:           false,
		AuthorizationCodeLifetime: 300 * time.Second,
	}
}

type AuthorizeOption func(*AuthorizeOptions)

func WithAllowEmptyState(allow bool) AuthorizeOption {
	return func(o *AuthorizeOptions) { o.AllowEmptyState = allow }
}

func WithAuthorizationCodeLifetime(d time.Duration) AuthorizeOption {
	return func(o *AuthorizeOptions) { o.AuthorizationCodeLifetime = d }
}

func WithUserAuthenticator(a UserAuthenticator) AuthorizeOption {
	return func(o *AuthorizeOptions) { o.UserAuthenticator = a }
}

// AuthenticateOptions configures an AuthenticateHandler / Server.Authenticate
// call.
type AuthenticateOptions struct {
	AddAcceptedScopesHeader        bool
	AddAuthorizedScopesHeader      bool
	AllowBearerTokensInQueryString bool
	Scope                          string
	Realm                          string
}

// DefaultAuthenticateOptions returns the §4.1 authenticate() defaults.
func DefaultAuthenticateOptions() AuthenticateOptions {
	return AuthenticateOptions{
		AddAcceptedScopesHeader:        true,
		AddAuthorizedScopesHeader:      true,
		AllowBearerTokensInQueryString: false,
		Realm:                          "Service",
	}
}

type AuthenticateOption func(*AuthenticateOptions)

func WithAddAcceptedScopesHeader(add bool) AuthenticateOption {
	return func(o *AuthenticateOptions) { o.AddAcceptedScopesHeader = add }
}

func WithAddAuthorizedScopesHeader(add bool) AuthenticateOption {
	return func(o *AuthenticateOptions) { o.AddAuthorizedScopesHeader = add }
}

func WithAllowBearerTokensInQueryString(allow bool) AuthenticateOption {
	return func(o *AuthenticateOptions) { o.AllowBearerTokensInQueryString = allow }
}

// RequireScope is the Go analog of the source's "options|scope?" overload:
// passing a bare scope string as the only option.
func RequireScope(scope string) AuthenticateOption {
	return func(o *AuthenticateOptions) { o.Scope = scope }
}
