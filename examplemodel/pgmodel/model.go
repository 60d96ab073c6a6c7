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

package pgmodel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oauthforge/oauth2/model"
	"github.com/oauthforge/oauth2/pkg/validators"
)

// pgUser is the opaque identity this model hands back for resource
// owners and client-acting-as-itself lookups.
type pgUser struct {
	ID string
}

func userID(u model.User) string {
	if pu, ok := u.(pgUser); ok {
		return pu.ID
	}
	return fmt.Sprintf("%v", u)
}

// hashToken derives the lookup key stored alongside a token, so a
// database leak does not hand out usable bearer tokens. This mirrors the
// token_hash column convention: the raw token is never persisted.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Model is a model.Model backed by Postgres.
type Model struct {
	db     *DB
	hasher *PasswordHasher
}

// NewModel constructs a Model backed by an already-connected DB.
func NewModel(db *DB, hasher *PasswordHasher) *Model {
	return &Model{db: db, hasher: hasher}
}

// CreateClient registers a client, hashing secret if non-empty (empty
// means a public client, e.g. one using PKCE only — out of this core's
// scope, but the column still needs a defined empty state).
func (m *Model) CreateClient(ctx context.Context, client *model.Client, secret string) error {
	var secretHash string
	if secret != "" {
		var err error
		secretHash, err = m.hasher.Hash(secret)
		if err != nil {
			return fmt.Errorf("failed to hash client secret: %w", err)
		}
	}

	grants, err := json.Marshal(client.Grants)
	if err != nil {
		return fmt.Errorf("failed to marshal grant types: %w", err)
	}
	redirectURIs, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return fmt.Errorf("failed to marshal redirect uris: %w", err)
	}

	_, err = m.db.pool.Exec(ctx, `
		INSERT INTO oauth_clients (
			client_id, secret_hash, grant_types, redirect_uris,
			access_token_lifetime_seconds, refresh_token_lifetime_seconds
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		client.ID, secretHash, grants, redirectURIs,
		int(client.AccessTokenLifetime.Seconds()), int(client.RefreshTokenLifetime.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetClient implements model.ClientStore.
func (m *Model) GetClient(ctx context.Context, id, secret string) (*model.Client, error) {
	client, secretHash, err := m.getClientRow(ctx, id)
	if err != nil || client == nil {
		return nil, err
	}
	if secretHash != "" {
		ok, err := m.hasher.Verify(secret, secretHash)
		if err != nil {
			return nil, fmt.Errorf("failed to verify client secret: %w", err)
		}
		if !ok {
			return nil, nil
		}
	}
	return client, nil
}

func (m *Model) getClientRow(ctx context.Context, id string) (*model.Client, string, error) {
	var grantsJSON, redirectURIsJSON []byte
	var secretHash string
	var accessLifetime, refreshLifetime int

	err := m.db.pool.QueryRow(ctx, `
		SELECT secret_hash, grant_types, redirect_uris,
			access_token_lifetime_seconds, refresh_token_lifetime_seconds
		FROM oauth_clients WHERE client_id = $1
	`, id).Scan(&secretHash, &grantsJSON, &redirectURIsJSON, &accessLifetime, &refreshLifetime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to get client: %w", err)
	}

	client := &model.Client{ID: id}
	if err := json.Unmarshal(grantsJSON, &client.Grants); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal grant types: %w", err)
	}
	if err := json.Unmarshal(redirectURIsJSON, &client.RedirectURIs); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal redirect uris: %w", err)
	}
	client.AccessTokenLifetime = secondsToDuration(accessLifetime)
	client.RefreshTokenLifetime = secondsToDuration(refreshLifetime)

	return client, secretHash, nil
}

// SaveToken implements model.AccessTokenSaver.
func (m *Model) SaveToken(ctx context.Context, token *model.Token, client *model.Client, user model.User) (*model.Token, error) {
	_, err := m.db.pool.Exec(ctx, `
		INSERT INTO access_tokens (token_hash, client_id, user_id, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, hashToken(token.AccessToken), client.ID, userID(user), token.Scope, token.AccessTokenExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save access token: %w", err)
	}

	if token.RefreshToken != "" {
		_, err := m.db.pool.Exec(ctx, `
			INSERT INTO refresh_tokens (token_hash, client_id, user_id, scope, expires_at)
			VALUES ($1, $2, $3, $4, $5)
		`, hashToken(token.RefreshToken), client.ID, userID(user), token.Scope, token.RefreshTokenExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to save refresh token: %w", err)
		}
	}

	return token, nil
}

// GetAccessToken implements model.AccessTokenGetter.
func (m *Model) GetAccessToken(ctx context.Context, accessToken string) (*model.Token, error) {
	var clientID, uid, scope string
	var expiresAt time.Time
	var revokedAt *time.Time

	row := m.db.pool.QueryRow(ctx, `
		SELECT client_id, user_id, scope, expires_at, revoked_at
		FROM access_tokens WHERE token_hash = $1
	`, hashToken(accessToken))
	if err := row.Scan(&clientID, &uid, &scope, &expiresAt, &revokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	if revokedAt != nil {
		return nil, nil
	}

	client, _, err := m.getClientRow(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &model.Token{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: expiresAt,
		Scope:                scope,
		Client:               client,
		User:                 pgUser{ID: uid},
	}, nil
}

// VerifyScope implements model.ScopeVerifier.
func (m *Model) VerifyScope(ctx context.Context, token *model.Token, scope string) (bool, error) {
	return validators.ScopeContains(token.Scope, scope), nil
}

// GetAuthorizationCode implements model.AuthorizationCodeGetter.
func (m *Model) GetAuthorizationCode(ctx context.Context, code string) (*model.AuthorizationCode, error) {
	var clientID, uid, redirectURI, scope string
	var expiresAt time.Time

	row := m.db.pool.QueryRow(ctx, `
		SELECT client_id, user_id, redirect_uri, scope, expires_at
		FROM authorization_codes WHERE code = $1
	`, code)
	if err := row.Scan(&clientID, &uid, &redirectURI, &scope, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	client, _, err := m.getClientRow(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &model.AuthorizationCode{
		Code:        code,
		ExpiresAt:   expiresAt,
		RedirectURI: redirectURI,
		Scope:       scope,
		Client:      client,
		User:        pgUser{ID: uid},
	}, nil
}

// RevokeAuthorizationCode implements model.AuthorizationCodeRevoker.
func (m *Model) RevokeAuthorizationCode(ctx context.Context, code string) (bool, error) {
	tag, err := m.db.pool.Exec(ctx, `DELETE FROM authorization_codes WHERE code = $1`, code)
	if err != nil {
		return false, fmt.Errorf("failed to revoke authorization code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SaveAuthorizationCode implements model.AuthorizationCodeSaver.
func (m *Model) SaveAuthorizationCode(ctx context.Context, code *model.AuthorizationCode, client *model.Client, user model.User) (*model.AuthorizationCode, error) {
	_, err := m.db.pool.Exec(ctx, `
		INSERT INTO authorization_codes (code, client_id, user_id, redirect_uri, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, code.Code, client.ID, userID(user), code.RedirectURI, code.Scope, code.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save authorization code: %w", err)
	}
	return code, nil
}

// CreateUser registers a resource owner's password credential.
func (m *Model) CreateUser(ctx context.Context, username, password string) error {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = m.db.pool.Exec(ctx, `
		INSERT INTO oauth_users (username, password_hash) VALUES ($1, $2)
	`, username, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser implements model.PasswordUserGetter.
func (m *Model) GetUser(ctx context.Context, username, password string) (model.User, error) {
	var hash string
	err := m.db.pool.QueryRow(ctx, `
		SELECT password_hash FROM oauth_users WHERE username = $1
	`, username).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := m.hasher.Verify(password, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return pgUser{ID: username}, nil
}

// GetUserFromClient implements model.ClientUserGetter.
func (m *Model) GetUserFromClient(ctx context.Context, client *model.Client) (model.User, error) {
	return pgUser{ID: "client:" + client.ID}, nil
}

// GetRefreshToken implements model.RefreshTokenGetter.
func (m *Model) GetRefreshToken(ctx context.Context, refreshToken string) (*model.RefreshToken, error) {
	var clientID, uid, scope string
	var expiresAt time.Time
	var revokedAt *time.Time

	row := m.db.pool.QueryRow(ctx, `
		SELECT client_id, user_id, scope, expires_at, revoked_at
		FROM refresh_tokens WHERE token_hash = $1
	`, hashToken(refreshToken))
	if err := row.Scan(&clientID, &uid, &scope, &expiresAt, &revokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if revokedAt != nil {
		return nil, nil
	}

	client, _, err := m.getClientRow(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &model.RefreshToken{
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		Scope:                 scope,
		Client:                client,
		User:                  pgUser{ID: uid},
	}, nil
}

// RevokeToken implements model.RefreshTokenRevoker.
func (m *Model) RevokeToken(ctx context.Context, refreshToken string) (bool, error) {
	tag, err := m.db.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1 AND revoked_at IS NULL
	`, hashToken(refreshToken))
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
