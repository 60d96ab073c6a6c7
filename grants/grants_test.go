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

package grants

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/oauthforge/oauth2/model"
)

// mockModel is an in-memory model implementing every capability the
// built-in grants and their tests exercise.
type mockModel struct {
	codes    map[string]*model.AuthorizationCode
	tokens   map[string]*model.Token
	refresh  map[string]*model.RefreshToken
	users    map[string]model.User // keyed by "username:password"
	apiKeys  map[string]model.User
	savedLog []*model.Token
}

func newMockModel() *mockModel {
	return &mockModel{
		codes:   make(map[string]*model.AuthorizationCode),
		tokens:  make(map[string]*model.Token),
		refresh: make(map[string]*model.RefreshToken),
		users:   make(map[string]model.User),
		apiKeys: make(map[string]model.User),
	}
}

func (m *mockModel) GetClient(ctx context.Context, id, secret string) (*model.Client, error) {
	return &model.Client{ID: id, Grants: []string{AuthorizationCode, ClientCredentials, Password, RefreshToken, APIKey}}, nil
}

func (m *mockModel) SaveToken(ctx context.Context, token *model.Token, client *model.Client, user model.User) (*model.Token, error) {
	m.tokens[token.AccessToken] = token
	m.savedLog = append(m.savedLog, token)
	return token, nil
}

func (m *mockModel) GetAuthorizationCode(ctx context.Context, code string) (*model.AuthorizationCode, error) {
	return m.codes[code], nil
}

func (m *mockModel) RevokeAuthorizationCode(ctx context.Context, code string) (bool, error) {
	if _, ok := m.codes[code]; !ok {
		return false, nil
	}
	delete(m.codes, code)
	return true, nil
}

func (m *mockModel) GetUser(ctx context.Context, username, password string) (model.User, error) {
	u, ok := m.users[username+":"+password]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockModel) GetUserForAPIKey(ctx context.Context, apiKey string) (model.User, error) {
	u, ok := m.apiKeys[apiKey]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockModel) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return m.refresh[token], nil
}

func (m *mockModel) RevokeToken(ctx context.Context, token string) (bool, error) {
	if _, ok := m.refresh[token]; !ok {
		return false, nil
	}
	delete(m.refresh, token)
	return true, nil
}

func reqWithBody(values url.Values) *model.Request {
	return &model.Request{Method: "POST", Body: values}
}

// TestPurpose: Validates a successful authorization_code redemption issues
// both an access and a refresh token.
// Scope: Unit Test
// Security: OAuth2 Authorization Code Grant flow (RFC 6749 Section 4.1.3)
// Expected: Returns a token pair and revokes the code.
func TestAuthorizationCodeGrant_Success(t *testing.T) {
	m := newMockModel()
	client := &model.Client{ID: "client-1", RedirectURIs: []string{"https://app.example.com/cb"}}
	m.codes["code-1"] = &model.AuthorizationCode{
		Code:        "code-1",
		ExpiresAt:   time.Now().Add(time.Minute),
		RedirectURI: "https://app.example.com/cb",
		Scope:       "profile",
		Client:      client,
		User:        "user-1",
	}

	g := Builtins()[AuthorizationCode](Config{Model: m, AccessTokenLifetime: time.Hour, RefreshTokenLifetime: 24 * time.Hour})
	req := reqWithBody(url.Values{"code": {"code-1"}, "redirect_uri": {"https://app.example.com/cb"}})

	tok, err := g.Handle(context.Background(), req, client)
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Error("expected both access and refresh tokens")
	}
	if _, ok := m.codes["code-1"]; ok {
		t.Error("expected code to be revoked after use")
	}
}

// TestPurpose: Validates that an authorization code cannot be redeemed twice
// (replay prevention).
// Scope: Unit Test
// Security: Authorization code replay attack prevention (RFC 6749 Section 10.5)
// Expected: Second exchange attempt with the same code returns invalid_grant.
func TestAuthorizationCodeGrant_Replay(t *testing.T) {
	m := newMockModel()
	client := &model.Client{ID: "client-1"}
	m.codes["code-1"] = &model.AuthorizationCode{
		Code: "code-1", ExpiresAt: time.Now().Add(time.Minute), Client: client, User: "user-1",
	}
	g := Builtins()[AuthorizationCode](Config{Model: m, AccessTokenLifetime: time.Hour})
	req := reqWithBody(url.Values{"code": {"code-1"}})

	if _, err := g.Handle(context.Background(), req, client); err != nil {
		t.Fatalf("first exchange failed: %v", err)
	}
	_, err := g.Handle(context.Background(), req, client)
	if err == nil {
		t.Fatal("expected replay to fail")
	}
	oauthErr, ok := err.(*model.Error)
	if !ok || oauthErr.Kind != model.KindInvalidGrant {
		t.Errorf("expected invalid_grant, got %v", err)
	}
}

// TestPurpose: Validates that redeeming an authorization code with a
// mismatched redirect_uri is rejected.
// Scope: Unit Test
// Security: Authorization code binding to its original redirect_uri (RFC 6749 Section 4.1.3)
// Expected: Returns invalid_grant when redirect_uri does not match.
func TestAuthorizationCodeGrant_RedirectMismatch(t *testing.T) {
	m := newMockModel()
	client := &model.Client{ID: "client-1"}
	m.codes["code-1"] = &model.AuthorizationCode{
		Code: "code-1", ExpiresAt: time.Now().Add(time.Minute),
		RedirectURI: "https://app.example.com/cb", Client: client, User: "user-1",
	}
	g := Builtins()[AuthorizationCode](Config{Model: m, AccessTokenLifetime: time.Hour})
	req := reqWithBody(url.Values{"code": {"code-1"}, "redirect_uri": {"https://evil.example.com/cb"}})

	_, err := g.Handle(context.Background(), req, client)
	if err == nil {
		t.Fatal("expected redirect_uri mismatch to fail")
	}
}

// TestPurpose: Validates the client_credentials grant issues an
// access-only token with no refresh token.
// Scope: Unit Test
// Security: OAuth2 Client Credentials Grant flow (RFC 6749 Section 4.4)
// Expected: Returns an access token and no refresh token.
func TestClientCredentialsGrant_NoRefreshToken(t *testing.T) {
	m := newMockModel()
	client := &model.Client{ID: "client-1"}
	g := Builtins()[ClientCredentials](Config{Model: m, AccessTokenLifetime: time.Hour})

	tok, err := g.Handle(context.Background(), reqWithBody(url.Values{}), client)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if tok.AccessToken == "" {
		t.Error("expected access token")
	}
	if tok.RefreshToken != "" {
		t.Error("client_credentials must not issue a refresh token")
	}
}

// TestPurpose: Validates the password grant authenticates the resource
// owner's credentials before issuing tokens.
// Scope: Unit Test
// Security: OAuth2 Resource Owner Password Credentials Grant (RFC 6749 Section 4.3)
// Expected: Returns invalid_grant for unknown credentials, a token pair for valid ones.
func TestPasswordGrant(t *testing.T) {
	m := newMockModel()
	m.users["alice:hunter2"] = "user-alice"
	client := &model.Client{ID: "client-1"}
	g := Builtins()[Password](Config{Model: m, AccessTokenLifetime: time.Hour, RefreshTokenLifetime: time.Hour})

	_, err := g.Handle(context.Background(), reqWithBody(url.Values{"username": {"alice"}, "password": {"wrong"}}), client)
	if err == nil {
		t.Fatal("expected invalid_grant for wrong password")
	}

	tok, err := g.Handle(context.Background(), reqWithBody(url.Values{"username": {"alice"}, "password": {"hunter2"}}), client)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if tok.User != "user-alice" {
		t.Errorf("expected user-alice, got %v", tok.User)
	}
}

// TestPurpose: Validates refresh_token grant rotation revokes the
// presented token and issues a new one by default.
// Scope: Unit Test
// Security: Refresh token rotation (RFC 6749 Section 6)
// Expected: Old token is revoked; a new refresh token is returned.
func TestRefreshTokenGrant_RotatesByDefault(t *testing.T) {
	m := newMockModel()
	client := &model.Client{ID: "client-1"}
	m.refresh["rt-1"] = &model.RefreshToken{
		RefreshToken: "rt-1", RefreshTokenExpiresAt: time.Now().Add(time.Hour),
		Scope: "profile", Client: client, User: "user-1",
	}
	g := Builtins()[RefreshToken](Config{Model: m, AccessTokenLifetime: time.Hour, RefreshTokenLifetime: time.Hour})

	tok, err := g.Handle(context.Background(), reqWithBody(url.Values{"refresh_token": {"rt-1"}}), client)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if tok.RefreshToken == "" || tok.RefreshToken == "rt-1" {
		t.Error("expected a newly-issued refresh token")
	}
	if _, ok := m.refresh["rt-1"]; ok {
		t.Error("expected old refresh token to be revoked")
	}
}

// TestPurpose: Validates that setting AlwaysIssueNewRefreshToken to false
// leaves the originally presented refresh token valid.
// Scope: Unit Test
// Security: Host-configurable refresh token rotation policy
// Expected: The issued token carries no refresh token; the presented one
// is not revoked and stays valid.
func TestRefreshTokenGrant_NoRotationWhenDisabled(t *testing.T) {
	m := newMockModel()
	client := &model.Client{ID: "client-1"}
	m.refresh["rt-1"] = &model.RefreshToken{
		RefreshToken: "rt-1", RefreshTokenExpiresAt: time.Now().Add(time.Hour),
		Scope: "profile", Client: client, User: "user-1",
	}
	no := false
	g := Builtins()[RefreshToken](Config{Model: m, AccessTokenLifetime: time.Hour, AlwaysIssueNewRefreshToken: &no})

	tok, err := g.Handle(context.Background(), reqWithBody(url.Values{"refresh_token": {"rt-1"}}), client)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if tok.RefreshToken != "" {
		t.Errorf("expected no refresh token on the issued token, got %s", tok.RefreshToken)
	}
	if _, ok := m.refresh["rt-1"]; !ok {
		t.Error("expected original refresh token to remain valid")
	}
}

// TestPurpose: Validates the api_key extension grant resolves a
// pre-shared key to a user without requiring a model-supplied password flow.
// Scope: Unit Test
// Security: Pluggable extension grant registration (RFC 6749 Section 4.5)
// Expected: Returns a token pair for a known key, invalid_grant otherwise.
func TestAPIKeyGrant(t *testing.T) {
	m := newMockModel()
	m.apiKeys["key-123"] = "user-svc"
	client := &model.Client{ID: "client-1"}
	g := NewAPIKeyGrant(Config{Model: m, AccessTokenLifetime: time.Hour, RefreshTokenLifetime: time.Hour})

	if _, err := g.Handle(context.Background(), reqWithBody(url.Values{"api_key": {"wrong"}}), client); err == nil {
		t.Fatal("expected invalid_grant for unknown key")
	}

	tok, err := g.Handle(context.Background(), reqWithBody(url.Values{"api_key": {"key-123"}}), client)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if tok.User != "user-svc" {
		t.Errorf("expected user-svc, got %v", tok.User)
	}
}

// TestPurpose: Validates that a grant requiring a missing model capability
// fails fast with invalid_argument rather than panicking.
// Scope: Unit Test
// Security: Host misconfiguration surfaces as a programmer error (RFC 6749 Section 5.2, host extension)
// Expected: Returns invalid_argument when the model lacks a required capability.
func TestGrant_MissingCapability(t *testing.T) {
	client := &model.Client{ID: "client-1"}
	g := Builtins()[Password](Config{Model: struct{}{}, AccessTokenLifetime: time.Hour})

	_, err := g.Handle(context.Background(), reqWithBody(url.Values{"username": {"a"}, "password": {"b"}}), client)
	if err == nil {
		t.Fatal("expected error")
	}
	oauthErr, ok := err.(*model.Error)
	if !ok || oauthErr.Kind != model.KindInvalidArgument {
		t.Errorf("expected invalid_argument, got %v", err)
	}
}
