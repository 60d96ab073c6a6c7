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

// Package grants implements the token-endpoint grant types (RFC 6749
// §4.1–§4.4, §6): one state machine per grant, all conforming to the
// common Grant shape TokenHandler dispatches to.
package grants

import (
	"context"
	"time"

	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/pkg/tokenutil"
)

// Names of the four built-in grants, as they appear in a client's Grants
// list and in the grant_type form field.
const (
	AuthorizationCode = "authorization_code"
	ClientCredentials = "client_credentials"
	Password          = "password"
	RefreshToken      = "refresh_token"
)

// Config carries the per-request-independent settings every grant is
// constructed with (§4.3): the configured token lifetimes, the host
// model, and the refresh-token rotation policy.
type Config struct {
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	Model                model.Model

	// AlwaysIssueNewRefreshToken implements the three-state semantics of
	// §9 Open Questions: nil (unset) and true both enable rotation;
	// explicit false disables it. A plain bool parameter cannot express
	// "unset", so this is a pointer.
	AlwaysIssueNewRefreshToken *bool
}

// rotateRefreshToken reports whether the refresh_token grant should
// revoke the presented token and mint a new one. Per §9, "anything except
// explicit false" enables rotation.
func (c Config) rotateRefreshToken() bool {
	return c.AlwaysIssueNewRefreshToken == nil || *c.AlwaysIssueNewRefreshToken
}

// Grant is the common shape every grant type exposes: constructed with a
// Config, it handles one token request against an already-authenticated
// client and returns an issued Token.
type Grant interface {
	Handle(ctx context.Context, req *model.Request, client *model.Client) (*model.Token, error)
}

// Factory constructs a Grant bound to cfg. Built-in grants and any
// extension grant a host registers share this shape (§4.3: "pluggable
// extension grants").
type Factory func(cfg Config) Grant

// Builtins returns the four RFC 6749 grant factories keyed by grant_type
// name, ready to be merged with host-supplied extension grants by the
// server façade.
func Builtins() map[string]Factory {
	return map[string]Factory{
		AuthorizationCode: func(cfg Config) Grant { return &authorizationCodeGrant{cfg: cfg} },
		ClientCredentials: func(cfg Config) Grant { return &clientCredentialsGrant{cfg: cfg} },
		Password:          func(cfg Config) Grant { return &passwordGrant{cfg: cfg} },
		RefreshToken:      func(cfg Config) Grant { return &refreshTokenGrant{cfg: cfg} },
	}
}

// --- shared helpers (§4.3 "Common helpers") ---

func generateAccessToken(ctx context.Context, cfg Config, client *model.Client, user model.User, scope string) (string, error) {
	if gen, ok := model.Optional[model.AccessTokenGenerator](cfg.Model); ok {
		if tok, err := gen.GenerateAccessToken(ctx, client, user, scope); err != nil {
			return "", model.Wrap(err)
		} else if tok != "" {
			return tok, nil
		}
	}
	return tokenutil.Generate()
}

func generateRefreshToken(ctx context.Context, cfg Config, client *model.Client, user model.User, scope string) (string, error) {
	if gen, ok := model.Optional[model.RefreshTokenGenerator](cfg.Model); ok {
		if tok, err := gen.GenerateRefreshToken(ctx, client, user, scope); err != nil {
			return "", model.Wrap(err)
		} else if tok != "" {
			return tok, nil
		}
	}
	return tokenutil.Generate()
}

func accessTokenExpiresAt(cfg Config, client *model.Client, now time.Time) time.Time {
	lifetime := cfg.AccessTokenLifetime
	if client.AccessTokenLifetime > 0 {
		lifetime = client.AccessTokenLifetime
	}
	return now.Add(lifetime)
}

func refreshTokenExpiresAt(cfg Config, client *model.Client, now time.Time) time.Time {
	lifetime := cfg.RefreshTokenLifetime
	if client.RefreshTokenLifetime > 0 {
		lifetime = client.RefreshTokenLifetime
	}
	return now.Add(lifetime)
}

func getScope(req *model.Request) string {
	return req.Param("scope")
}

// validateScope applies the model's optional ScopeValidator override,
// passing the requested scope through unchanged when the model does not
// implement one — splitting/canonicalizing scope strings stays the
// model's responsibility (§9 Open Questions).
func validateScope(ctx context.Context, cfg Config, client *model.Client, user model.User, scope string) (string, error) {
	validator, ok := model.Optional[model.ScopeValidator](cfg.Model)
	if !ok {
		return scope, nil
	}
	validated, valid, err := validator.ValidateScope(ctx, client, user, scope)
	if err != nil {
		return "", model.Wrap(err)
	}
	if !valid {
		return "", model.New(model.KindInvalidScope, "requested scope exceeds what is granted to this client")
	}
	return validated, nil
}

// issueToken runs the three independent computations every grant needs
// before calling SaveToken — scope validation, access-token generation,
// and (when applicable) refresh-token generation — concurrently, then
// persists the result. This is the "explicit parallelism" §5 calls for
// inside grant saveToken methods: all must complete before proceeding,
// and the first failure is returned.
func issueToken(ctx context.Context, cfg Config, client *model.Client, user model.User, requestedScope string, withRefreshToken bool, authorizationCode string) (*model.Token, error) {
	saver, err := model.Require[model.AccessTokenSaver](cfg.Model, "AccessTokenSaver (SaveToken)")
	if err != nil {
		return nil, err
	}

	now := time.Now()

	type result struct {
		val string
		err error
	}

	scopeCh := make(chan result, 1)
	accessCh := make(chan result, 1)
	refreshCh := make(chan result, 1)

	go func() {
		v, err := validateScope(ctx, cfg, client, user, requestedScope)
		scopeCh <- result{v, err}
	}()
	go func() {
		v, err := generateAccessToken(ctx, cfg, client, user, requestedScope)
		accessCh <- result{v, err}
	}()
	if withRefreshToken {
		go func() {
			v, err := generateRefreshToken(ctx, cfg, client, user, requestedScope)
			refreshCh <- result{v, err}
		}()
	} else {
		refreshCh <- result{}
	}

	scopeRes, accessRes, refreshRes := <-scopeCh, <-accessCh, <-refreshCh
	if scopeRes.err != nil {
		return nil, scopeRes.err
	}
	if accessRes.err != nil {
		return nil, accessRes.err
	}
	if refreshRes.err != nil {
		return nil, refreshRes.err
	}

	token := &model.Token{
		AccessToken:          accessRes.val,
		AccessTokenExpiresAt: accessTokenExpiresAt(cfg, client, now),
		Scope:                scopeRes.val,
		Client:               client,
		User:                 user,
		AuthorizationCode:    authorizationCode,
	}
	if withRefreshToken {
		token.RefreshToken = refreshRes.val
		token.RefreshTokenExpiresAt = refreshTokenExpiresAt(cfg, client, now)
	}

	saved, err := saver.SaveToken(ctx, token, client, user)
	if err != nil {
		return nil, model.Wrap(err)
	}
	return saved, nil
}
