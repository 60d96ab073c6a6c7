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

//go:build integration
// +build integration

package pgmodel

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oauthforge/oauth2/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	cfg := Config{
		Host:         "localhost",
		Port:         "5432",
		User:         "oauthforge",
		Password:     "oauthforge_dev_password",
		Database:     "oauthforge",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg = Config{DSN: dsn}
	}

	ctx := context.Background()
	db, err := New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping integration test: failed to connect to database: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

// TestPurpose: Validates that a client registered with a secret rejects
// lookups presenting the wrong secret, against a real Argon2id hash
// round-trip through Postgres.
// Scope: Database Integration Test
// Security: Client authentication (RFC 6749 Section 2.3.1)
// Expected: GetClient returns nil for a mismatched secret, the client for a correct one.
func TestModel_GetClient_SecretMismatch(t *testing.T) {
	db := testDB(t)
	defer db.Close()

	hasher := NewPasswordHasher(64*1024, 3, 2, 16, 32)
	m := NewModel(db, hasher)
	ctx := context.Background()

	client := &model.Client{ID: "integration-client-1", Grants: []string{"client_credentials"}}
	if err := m.CreateClient(ctx, client, "s1"); err != nil {
		t.Fatalf("create client failed: %v", err)
	}

	got, err := m.GetClient(ctx, client.ID, "wrong")
	if err != nil || got != nil {
		t.Fatalf("expected nil client for wrong secret, got %v err=%v", got, err)
	}

	got, err = m.GetClient(ctx, client.ID, "s1")
	if err != nil || got == nil {
		t.Fatalf("expected client for correct secret, got %v err=%v", got, err)
	}
}

// TestPurpose: Validates that a saved token round-trips through
// GetAccessToken and its refresh token through GetRefreshToken.
// Scope: Database Integration Test
// Security: Token persistence round-trip (RFC 6749 Section 5.1)
// Expected: Both lookups return the persisted values; revoking the
// refresh token makes it unavailable.
func TestModel_SaveToken_RoundTrip(t *testing.T) {
	db := testDB(t)
	defer db.Close()

	hasher := NewPasswordHasher(64*1024, 3, 2, 16, 32)
	m := NewModel(db, hasher)
	ctx := context.Background()

	client := &model.Client{ID: "integration-client-2"}
	if err := m.CreateClient(ctx, client, ""); err != nil {
		t.Fatalf("create client failed: %v", err)
	}

	tok := &model.Token{
		AccessToken:           "at-integration-1",
		AccessTokenExpiresAt:  time.Now().Add(time.Hour),
		RefreshToken:          "rt-integration-1",
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour),
		Scope:                 "profile",
	}
	if _, err := m.SaveToken(ctx, tok, client, pgUser{ID: "u1"}); err != nil {
		t.Fatalf("save token failed: %v", err)
	}

	got, err := m.GetAccessToken(ctx, "at-integration-1")
	if err != nil || got == nil || got.AccessToken != "at-integration-1" {
		t.Fatalf("expected round-tripped access token, got %v err=%v", got, err)
	}

	rt, err := m.GetRefreshToken(ctx, "rt-integration-1")
	if err != nil || rt == nil || rt.Client.ID != client.ID {
		t.Fatalf("expected round-tripped refresh token, got %v err=%v", rt, err)
	}

	revoked, err := m.RevokeToken(ctx, "rt-integration-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoke to succeed, got %v err=%v", revoked, err)
	}
	rt, err = m.GetRefreshToken(ctx, "rt-integration-1")
	if err != nil || rt != nil {
		t.Fatalf("expected refresh token gone after revoke, got %v", rt)
	}
}

// TestPurpose: Validates that an authorization code is single-use:
// RevokeAuthorizationCode deletes it so a replay finds nothing.
// Scope: Database Integration Test
// Security: Authorization code replay prevention (RFC 6749 Section 4.1.2)
// Expected: GetAuthorizationCode returns nil after the code is revoked.
func TestModel_AuthorizationCode_SingleUse(t *testing.T) {
	db := testDB(t)
	defer db.Close()

	hasher := NewPasswordHasher(64*1024, 3, 2, 16, 32)
	m := NewModel(db, hasher)
	ctx := context.Background()

	client := &model.Client{ID: "integration-client-3"}
	if err := m.CreateClient(ctx, client, ""); err != nil {
		t.Fatalf("create client failed: %v", err)
	}

	code := &model.AuthorizationCode{
		Code:        "code-integration-1",
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		RedirectURI: "https://client.example/callback",
		Scope:       "profile",
	}
	if _, err := m.SaveAuthorizationCode(ctx, code, client, pgUser{ID: "u1"}); err != nil {
		t.Fatalf("save code failed: %v", err)
	}

	got, err := m.GetAuthorizationCode(ctx, code.Code)
	if err != nil || got == nil {
		t.Fatalf("expected code to be retrievable, got %v err=%v", got, err)
	}

	revoked, err := m.RevokeAuthorizationCode(ctx, code.Code)
	if err != nil || !revoked {
		t.Fatalf("expected revoke to succeed, got %v err=%v", revoked, err)
	}

	got, err = m.GetAuthorizationCode(ctx, code.Code)
	if err != nil || got != nil {
		t.Fatalf("expected code gone after revoke, got %v", got)
	}
}

// TestPurpose: Validates password hashing end to end through the user
// table: a user can authenticate with the correct password and not with
// an incorrect one.
// Scope: Database Integration Test
// Security: Resource owner password credential verification (RFC 6749 Section 4.3)
// Expected: GetUser returns a non-nil User for the correct password, nil otherwise.
func TestModel_GetUser_PasswordVerification(t *testing.T) {
	db := testDB(t)
	defer db.Close()

	hasher := NewPasswordHasher(64*1024, 3, 2, 16, 32)
	m := NewModel(db, hasher)
	ctx := context.Background()

	if err := m.CreateUser(ctx, "integration-user-1", "correct horse battery staple"); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	u, err := m.GetUser(ctx, "integration-user-1", "wrong password")
	if err != nil || u != nil {
		t.Fatalf("expected nil user for wrong password, got %v err=%v", u, err)
	}

	u, err = m.GetUser(ctx, "integration-user-1", "correct horse battery staple")
	if err != nil || u == nil {
		t.Fatalf("expected user for correct password, got %v err=%v", u, err)
	}
}
