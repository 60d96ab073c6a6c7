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

// Package jwtmodel is a reference model.Model demonstrating the "opaque
// token" extension point the core's design notes call out: access tokens
// are self-verifying signed JWTs rather than rows in a store, so
// GetAccessToken never touches storage. Clients, authorization codes and
// resource owner credentials are delegated to an embedded Store; refresh
// tokens are kept in an in-memory table on the Model itself. Both still
// need the single-use/revocation semantics a signature alone cannot
// provide.
package jwtmodel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/pkg/validators"
)

// Store is the persistence surface jwtmodel.Model delegates everything
// except access tokens and refresh tokens to.
type Store interface {
	model.ClientStore
	model.AuthorizationCodeGetter
	model.AuthorizationCodeRevoker
	model.AuthorizationCodeSaver
	model.PasswordUserGetter
	model.ClientUserGetter
}

// Model wraps a Store, adding stateless JWT access tokens and an
// in-memory refresh token table (refresh tokens still need single-use /
// revocation bookkeeping a signature alone doesn't give you).
type Model struct {
	Store

	signingKey []byte
	issuer     string
	lifetime   time.Duration

	mu      sync.RWMutex
	refresh map[string]*model.RefreshToken
}

// New constructs a Model signing access tokens with signingKey (HS256) and
// embedding lifetime as their "exp" claim.
func New(store Store, signingKey []byte, issuer string, lifetime time.Duration) *Model {
	return &Model{
		Store:      store,
		signingKey: signingKey,
		issuer:     issuer,
		lifetime:   lifetime,
		refresh:    make(map[string]*model.RefreshToken),
	}
}

type claims struct {
	ClientID string `json:"cid"`
	Subject  string `json:"sub"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateAccessToken implements model.AccessTokenGenerator: the grant's
// built-in random-token fallback is bypassed in favor of a signed JWT
// carrying the client, user, and scope.
func (m *Model) GenerateAccessToken(ctx context.Context, client *model.Client, user model.User, scope string) (string, error) {
	now := time.Now()
	c := claims{
		ClientID: client.ID,
		Subject:  fmt.Sprintf("%v", user),
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(m.signingKey)
}

// GetAccessToken implements model.AccessTokenGetter by verifying the JWT's
// signature and expiry rather than looking anything up.
func (m *Model) GetAccessToken(ctx context.Context, accessToken string) (*model.Token, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(accessToken, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, nil
	}

	client, err := m.Store.GetClient(ctx, c.ClientID, "")
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}

	return &model.Token{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: c.ExpiresAt.Time,
		Scope:                c.Scope,
		Client:               client,
		User:                 c.Subject,
	}, nil
}

// VerifyScope implements model.ScopeVerifier against the scope embedded in
// the JWT (already populated onto token.Scope by GetAccessToken).
func (m *Model) VerifyScope(ctx context.Context, token *model.Token, scope string) (bool, error) {
	return validators.ScopeContains(token.Scope, scope), nil
}

// SaveToken implements model.AccessTokenSaver. The access token is
// already self-contained (it was minted by GenerateAccessToken); only the
// refresh token, if any, needs a persisted record to support later lookup
// and single-use revocation.
func (m *Model) SaveToken(ctx context.Context, token *model.Token, client *model.Client, user model.User) (*model.Token, error) {
	if token.RefreshToken != "" {
		m.mu.Lock()
		m.refresh[token.RefreshToken] = &model.RefreshToken{
			RefreshToken:          token.RefreshToken,
			RefreshTokenExpiresAt: token.RefreshTokenExpiresAt,
			Scope:                 token.Scope,
			Client:                client,
			User:                  user,
		}
		m.mu.Unlock()
	}
	return token, nil
}

// GetRefreshToken implements model.RefreshTokenGetter.
func (m *Model) GetRefreshToken(ctx context.Context, refreshToken string) (*model.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh[refreshToken], nil
}

// RevokeToken implements model.RefreshTokenRevoker.
func (m *Model) RevokeToken(ctx context.Context, refreshToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refresh[refreshToken]; !ok {
		return false, nil
	}
	delete(m.refresh, refreshToken)
	return true, nil
}
