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

// Package memorymodel is a reference model.Model backed by in-process
// maps. It implements the capabilities the built-in grants and handlers
// require (none of the optional generator or scope-validator overrides,
// and not the api-key grant's APIKeyUserGetter), so it doubles as a demo server's storage and as a drop-in for tests that
// exercise the core against a real (if volatile) persistence layer rather
// than a hand-rolled per-test mock.
package memorymodel

import (
	"context"
	"sync"

	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/pkg/ctcompare"
	"github.com/oauthforge/oauth2/pkg/validators"
)

// passwordUser is the User value this model hands back for the password
// and client_credentials grants: an opaque identity key plus the scope
// the resource owner is entitled to.
type passwordUser struct {
	ID    string
	Scope string
}

// Model is the in-memory store. The zero value is not usable; construct
// with New.
type Model struct {
	mu sync.RWMutex

	clients     map[string]*model.Client
	clientAuth  map[string]string // client id -> secret, kept separate from Client so callers can't accidentally leak it back out
	tokens      map[string]*model.Token
	codes       map[string]*model.AuthorizationCode
	refreshToks map[string]*model.RefreshToken
	users       map[string]string // username -> password, demo only
}

// New constructs an empty Model.
func New() *Model {
	return &Model{
		clients:     make(map[string]*model.Client),
		clientAuth:  make(map[string]string),
		tokens:      make(map[string]*model.Token),
		codes:       make(map[string]*model.AuthorizationCode),
		refreshToks: make(map[string]*model.RefreshToken),
		users:       make(map[string]string),
	}
}

// RegisterClient adds a client to the store, along with its secret
// (empty for public clients).
func (m *Model) RegisterClient(c *model.Client, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	m.clientAuth[c.ID] = secret
}

// RegisterUser adds a resource owner's credentials for the password
// grant. Demo-only: production models must never hold plaintext passwords.
func (m *Model) RegisterUser(username, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username] = password
}

// GetClient implements model.ClientStore.
func (m *Model) GetClient(ctx context.Context, id, secret string) (*model.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	if stored := m.clientAuth[id]; stored != "" && !ctcompare.Equal(secret, stored) {
		return nil, nil
	}
	return c, nil
}

// SaveToken implements model.AccessTokenSaver.
func (m *Model) SaveToken(ctx context.Context, token *model.Token, client *model.Client, user model.User) (*model.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.AccessToken] = token
	if token.RefreshToken != "" {
		m.refreshToks[token.RefreshToken] = &model.RefreshToken{
			RefreshToken:          token.RefreshToken,
			RefreshTokenExpiresAt: token.RefreshTokenExpiresAt,
			Scope:                 token.Scope,
			Client:                client,
			User:                  user,
		}
	}
	return token, nil
}

// GetAccessToken implements model.AccessTokenGetter.
func (m *Model) GetAccessToken(ctx context.Context, accessToken string) (*model.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[accessToken], nil
}

// VerifyScope implements model.ScopeVerifier: a token's scope grants
// access to requested iff requested is a space-delimited subset of it.
func (m *Model) VerifyScope(ctx context.Context, token *model.Token, scope string) (bool, error) {
	return validators.ScopeContains(token.Scope, scope), nil
}

// GetAuthorizationCode implements model.AuthorizationCodeGetter.
func (m *Model) GetAuthorizationCode(ctx context.Context, code string) (*model.AuthorizationCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.codes[code], nil
}

// RevokeAuthorizationCode implements model.AuthorizationCodeRevoker.
func (m *Model) RevokeAuthorizationCode(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code]; !ok {
		return false, nil
	}
	delete(m.codes, code)
	return true, nil
}

// SaveAuthorizationCode implements model.AuthorizationCodeSaver.
func (m *Model) SaveAuthorizationCode(ctx context.Context, code *model.AuthorizationCode, client *model.Client, user model.User) (*model.AuthorizationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code.Code] = code
	return code, nil
}

// GetUser implements model.PasswordUserGetter.
func (m *Model) GetUser(ctx context.Context, username, password string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.users[username]
	if !ok || !ctcompare.Equal(password, stored) {
		return nil, nil
	}
	return passwordUser{ID: username}, nil
}

// GetUserFromClient implements model.ClientUserGetter: the
// client_credentials grant acts on behalf of the client itself.
func (m *Model) GetUserFromClient(ctx context.Context, client *model.Client) (model.User, error) {
	return passwordUser{ID: "client:" + client.ID}, nil
}

// GetRefreshToken implements model.RefreshTokenGetter.
func (m *Model) GetRefreshToken(ctx context.Context, refreshToken string) (*model.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToks[refreshToken], nil
}

// RevokeToken implements model.RefreshTokenRevoker.
func (m *Model) RevokeToken(ctx context.Context, refreshToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refreshToks[refreshToken]; !ok {
		return false, nil
	}
	delete(m.refreshToks, refreshToken)
	return true, nil
}
