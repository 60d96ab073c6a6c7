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
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oauthforge/oauth2/grants"
	"github.com/oauthforge/oauth2/model"
)

// testModel is an in-memory model.Model exercising every capability the
// façade's three pipelines require, used across this file's scenarios.
type testModel struct {
	clients map[string]*model.Client
	codes   map[string]*model.AuthorizationCode
	tokens  map[string]*model.Token
	refresh map[string]*model.RefreshToken

	saveTokenCalls   int
	revokeCodeCalls  int
	revokeTokenCalls int
}

func newTestModel() *testModel {
	return &testModel{
		clients: make(map[string]*model.Client),
		codes:   make(map[string]*model.AuthorizationCode),
		tokens:  make(map[string]*model.Token),
		refresh: make(map[string]*model.RefreshToken),
	}
}

func (m *testModel) GetClient(ctx context.Context, id, secret string) (*model.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	if secret != "" && c.Secret != secret {
		return nil, nil
	}
	return c, nil
}

func (m *testModel) SaveToken(ctx context.Context, token *model.Token, client *model.Client, user model.User) (*model.Token, error) {
	m.saveTokenCalls++
	m.tokens[token.AccessToken] = token
	return token, nil
}

func (m *testModel) GetAuthorizationCode(ctx context.Context, code string) (*model.AuthorizationCode, error) {
	return m.codes[code], nil
}

func (m *testModel) RevokeAuthorizationCode(ctx context.Context, code string) (bool, error) {
	m.revokeCodeCalls++
	if _, ok := m.codes[code]; !ok {
		return false, nil
	}
	delete(m.codes, code)
	return true, nil
}

func (m *testModel) SaveAuthorizationCode(ctx context.Context, code *model.AuthorizationCode, client *model.Client, user model.User) (*model.AuthorizationCode, error) {
	m.codes[code.Code] = code
	return code, nil
}

func (m *testModel) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return m.refresh[token], nil
}

func (m *testModel) RevokeToken(ctx context.Context, token string) (bool, error) {
	m.revokeTokenCalls++
	if _, ok := m.refresh[token]; !ok {
		return false, nil
	}
	delete(m.refresh, token)
	return true, nil
}

func formRequest(values url.Values) *model.Request {
	return &model.Request{Method: "POST", ContentType: "application/x-www-form-urlencoded", Body: values}
}

func basicAuthHeader(id, secret string) map[string][]string {
	creds := base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
	return map[string][]string{"Authorization": {"Basic " + creds}}
}

// TestPurpose: Validates the authorization_code happy path issues both an
// access and refresh token and revokes the code exactly once (S1).
// Scope: Integration Test
// Security: OAuth2 Authorization Code Grant flow (RFC 6749 Section 4.1.3)
// Expected: HTTP 200; body contains access_token, refresh_token,
// token_type "Bearer", expires_in 3600 (within one second);
// revokeAuthorizationCode and
// saveToken each called exactly once.
func TestServer_Token_AuthorizationCode_HappyPath(t *testing.T) {
	m := newTestModel()
	m.clients["c1"] = &model.Client{ID: "c1", Secret: "s1", Grants: []string{grants.AuthorizationCode}, RedirectURIs: []string{"https://x.test/cb"}}
	m.codes["abc"] = &model.AuthorizationCode{
		Code: "abc", ExpiresAt: time.Now().Add(60 * time.Second),
		RedirectURI: "https://x.test/cb", Client: m.clients["c1"], User: "u1",
	}

	srv := NewServer(m)
	req := formRequest(url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {"abc"},
		"redirect_uri": {"https://x.test/cb"},
		"client_id":    {"c1"},
		"client_secret": {"s1"},
	})

	resp, err := srv.Token(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	body := resp.Body.(map[string]any)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.Equal(t, "Bearer", body["token_type"])
	assert.InDelta(t, 3600, body["expires_in"], 1)
	assert.Equal(t, 1, m.revokeCodeCalls)
	assert.Equal(t, 1, m.saveTokenCalls)
}

// TestPurpose: Validates that replaying an already-exchanged authorization
// code is rejected (S2).
// Scope: Integration Test
// Security: Authorization code replay prevention (RFC 6749 Section 10.5)
// Expected: Second exchange returns HTTP 400 invalid_grant.
func TestServer_Token_AuthorizationCode_Replay(t *testing.T) {
	m := newTestModel()
	m.clients["c1"] = &model.Client{ID: "c1", Secret: "s1", Grants: []string{grants.AuthorizationCode}, RedirectURIs: []string{"https://x.test/cb"}}
	m.codes["abc"] = &model.AuthorizationCode{Code: "abc", ExpiresAt: time.Now().Add(60 * time.Second), Client: m.clients["c1"], User: "u1"}

	srv := NewServer(m)
	req := formRequest(url.Values{"grant_type": {"authorization_code"}, "code": {"abc"}, "client_id": {"c1"}, "client_secret": {"s1"}})

	_, err := srv.Token(context.Background(), req)
	require.NoError(t, err)

	_, err = srv.Token(context.Background(), req)
	require.Error(t, err)
	oauthErr, ok := err.(*model.Error)
	require.True(t, ok)
	assert.Equal(t, model.KindInvalidGrant, oauthErr.Kind)
	assert.Equal(t, 400, oauthErr.Code)
}

// TestPurpose: Validates that disabling refresh token rotation server-wide
// preserves the presented refresh token and skips revocation (S3).
// Scope: Integration Test
// Security: Host-configurable refresh token rotation policy (RFC 6749 Section 6)
// Expected: HTTP 200 with access_token present, refresh_token absent from
// the response body; revokeToken is never called.
func TestServer_Token_RefreshToken_NoRotation(t *testing.T) {
	m := newTestModel()
	client := &model.Client{ID: "c1", Secret: "s1", Grants: []string{grants.RefreshToken}}
	m.clients["c1"] = client
	m.refresh["r1"] = &model.RefreshToken{RefreshToken: "r1", RefreshTokenExpiresAt: time.Now().Add(time.Hour), Client: client, User: "u1"}

	always := false
	srv := NewServer(m, WithTokenDefaults(func() TokenOptions {
		o := DefaultTokenOptions()
		o.AlwaysIssueNewRefreshToken = &always
		return o
	}()))

	req := &model.Request{
		Method: "POST", ContentType: "application/x-www-form-urlencoded",
		Headers: basicAuthHeader("c1", "s1"),
		Body:    url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"r1"}},
	}

	resp, err := srv.Token(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	body := resp.Body.(map[string]any)
	assert.NotEmpty(t, body["access_token"])
	_, hasRefresh := body["refresh_token"]
	assert.False(t, hasRefresh)
	assert.Equal(t, 0, m.revokeTokenCalls)
}

// TestPurpose: Validates the authorize happy path redirects with an
// authorization code and echoes state, persisting the code with roughly
// the configured lifetime (S4).
// Scope: Integration Test
// Security: OAuth2 Authorization Code issuance (RFC 6749 Section 4.1.2)
// Expected: HTTP 302 Location carries code and state=xyz; saveAuthorizationCode
// is called with an expiry approximately 300s out.
func TestServer_Authorize_HappyPath(t *testing.T) {
	m := newTestModel()
	m.clients["c1"] = &model.Client{ID: "c1", Grants: []string{grants.AuthorizationCode}, RedirectURIs: []string{"https://x.test/cb"}}

	auth := UserAuthenticatorFunc(func(ctx context.Context, req *model.Request) (model.User, error) {
		return "u1", nil
	})
	srv := NewServer(m)
	req := &model.Request{
		Method: "GET",
		Query: url.Values{
			"client_id": {"c1"}, "response_type": {"code"},
			"redirect_uri": {"https://x.test/cb"}, "state": {"xyz"},
		},
	}

	resp, err := srv.Authorize(context.Background(), req, WithUserAuthenticator(auth))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.Status)

	loc, err := url.Parse(resp.Redirect)
	require.NoError(t, err)
	assert.Equal(t, "xyz", loc.Query().Get("state"))
	assert.NotEmpty(t, loc.Query().Get("code"))

	require.Len(t, m.codes, 1)
	for _, c := range m.codes {
		assert.WithinDuration(t, time.Now().Add(300*time.Second), c.ExpiresAt, 5*time.Second)
	}
}

// TestPurpose: Validates that a denied authorization request redirects
// with access_denied rather than issuing a code (S5).
// Scope: Integration Test
// Security: Resource owner consent enforcement (RFC 6749 Section 4.1.1)
// Expected: HTTP 302 Location carries error=access_denied and state=xyz.
func TestServer_Authorize_Denied(t *testing.T) {
	m := newTestModel()
	m.clients["c1"] = &model.Client{ID: "c1", Grants: []string{grants.AuthorizationCode}, RedirectURIs: []string{"https://x.test/cb"}}
	auth := UserAuthenticatorFunc(func(ctx context.Context, req *model.Request) (model.User, error) { return "u1", nil })

	srv := NewServer(m)
	req := &model.Request{
		Method: "GET",
		Query: url.Values{
			"client_id": {"c1"}, "response_type": {"code"},
			"redirect_uri": {"https://x.test/cb"}, "state": {"xyz"}, "allowed": {"false"},
		},
	}

	resp, err := srv.Authorize(context.Background(), req, WithUserAuthenticator(auth))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 302, resp.Status)

	loc, err := url.Parse(resp.Redirect)
	require.NoError(t, err)
	assert.Equal(t, "access_denied", loc.Query().Get("error"))
	assert.Equal(t, "xyz", loc.Query().Get("state"))
	assert.Empty(t, m.codes)
}

// TestPurpose: Validates that an unrecognized grant_type is rejected (S6).
// Scope: Integration Test
// Security: Grant type registry enforcement (RFC 6749 Section 4.5)
// Expected: HTTP 400 unsupported_grant_type.
func TestServer_Token_UnsupportedGrantType(t *testing.T) {
	m := newTestModel()
	m.clients["c1"] = &model.Client{ID: "c1", Secret: "s1", Grants: []string{grants.AuthorizationCode}}
	srv := NewServer(m)

	req := formRequest(url.Values{"grant_type": {"foo"}, "client_id": {"c1"}, "client_secret": {"s1"}})
	_, err := srv.Token(context.Background(), req)
	require.Error(t, err)
	oauthErr, ok := err.(*model.Error)
	require.True(t, ok)
	assert.Equal(t, model.KindUnsupportedGrant, oauthErr.Kind)
	assert.Equal(t, 400, oauthErr.Code)
}

// TestPurpose: Validates that an extension grant registered via
// WithExtensionGrant is reachable through the standard Token pipeline.
// Scope: Integration Test
// Security: Pluggable extension grant registration (RFC 6749 Section 4.5)
// Expected: the request reaches the api-key grant, which fails with
// invalid_argument because testModel lacks APIKeyUserGetter (not
// unsupported_grant_type).
func TestServer_Token_ExtensionGrant(t *testing.T) {
	m := newTestModel()
	m.clients["c1"] = &model.Client{ID: "c1", Secret: "s1", Grants: []string{grants.APIKey}}
	srv := NewServer(m, WithExtensionGrant(grants.APIKey, grants.NewAPIKeyGrant))

	// testModel doesn't implement APIKeyUserGetter, so this should fail
	// fast with invalid_argument rather than unsupported_grant_type.
	req := formRequest(url.Values{"grant_type": {grants.APIKey}, "api_key": {"k"}, "client_id": {"c1"}, "client_secret": {"s1"}})
	_, err := srv.Token(context.Background(), req)
	require.Error(t, err)
	oauthErr, ok := err.(*model.Error)
	require.True(t, ok)
	assert.Equal(t, model.KindInvalidArgument, oauthErr.Kind)
}

// TestPurpose: Validates that client authentication presented via the
// Authorization header, when it fails, yields 401 with the Basic
// WWW-Authenticate challenge rather than a generic 400 (invariant 6).
// Scope: Integration Test
// Security: Client authentication failure signaling (RFC 6749 Section 5.2)
// Expected: HTTP 401; the error is invalid_client.
func TestServer_Token_InvalidClient_ViaHeader_Returns401(t *testing.T) {
	m := newTestModel()
	srv := NewServer(m)
	req := &model.Request{
		Method: "POST", ContentType: "application/x-www-form-urlencoded",
		Headers: basicAuthHeader("ghost", "wrong"),
		Body:    url.Values{"grant_type": {"client_credentials"}},
	}

	_, err := srv.Token(context.Background(), req)
	require.Error(t, err)
	oauthErr, ok := err.(*model.Error)
	require.True(t, ok)
	assert.Equal(t, model.KindInvalidClient, oauthErr.Kind)
	assert.Equal(t, 401, oauthErr.Code)
}
