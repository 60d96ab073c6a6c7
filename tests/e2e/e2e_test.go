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

//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL      = getEnv("OAUTHFORGE_URL", "http://127.0.0.1:8080")
	clientID     = getEnv("OAUTHFORGE_E2E_CLIENT_ID", "e2e-client")
	clientSecret = getEnv("OAUTHFORGE_E2E_CLIENT_SECRET", "e2e-secret")
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// TestE2E_HealthCheck exercises the liveness endpoint any deployment
// monitor would poll.
func TestE2E_HealthCheck(t *testing.T) {
	resp, err := httpClient().Get(baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestE2E_ClientCredentialsFlow drives the §4.4 client_credentials grant
// end to end against a running deployment, then uses the issued access
// token against the bearer-protected /resource route (RFC 6750).
func TestE2E_ClientCredentialsFlow(t *testing.T) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/token", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	assert.NotEmpty(t, tokenResp.AccessToken)
	assert.Equal(t, "Bearer", tokenResp.TokenType)
	assert.Greater(t, tokenResp.ExpiresIn, 0)

	resourceReq, err := http.NewRequest(http.MethodGet, baseURL+"/resource", nil)
	require.NoError(t, err)
	resourceReq.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)

	resourceResp, err := httpClient().Do(resourceReq)
	require.NoError(t, err)
	defer resourceResp.Body.Close()
	assert.Equal(t, http.StatusOK, resourceResp.StatusCode)
}

// TestE2E_InvalidClientRejected confirms a bad client_secret fails the
// §4.4 flow with invalid_client rather than issuing a token.
func TestE2E_InvalidClientRejected(t *testing.T) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", "wrong-secret")

	req, err := http.NewRequest(http.MethodPost, baseURL+"/token", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "invalid_client", errResp.Error)
}

// TestE2E_ResourceRejectsMissingToken confirms the bearer-protected route
// reports RFC 6750's unauthorized response when no token is presented.
func TestE2E_ResourceRejectsMissingToken(t *testing.T) {
	resp, err := httpClient().Get(baseURL + "/resource")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}
