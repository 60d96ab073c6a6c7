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

// Package model defines the persistence and policy contract between the
// OAuth2 core and its host application — the value objects the three
// pipelines exchange with it (Client, User, AuthorizationCode, Token,
// RefreshToken), the capability interfaces a host implements ("the
// model"), and the shared protocol error taxonomy.
//
// The core never owns these entities beyond one request's lifetime: each
// is constructed from a model call, used to build a response, and
// discarded. The model exclusively owns persisted state.
package model

import "time"

// Client is a registered OAuth2 client application.
type Client struct {
	ID           string
	Secret       string
	Grants       []string
	RedirectURIs []string

	// AccessTokenLifetime and RefreshTokenLifetime, when non-zero, override
	// the server façade's configured defaults for tokens issued to this
	// client.
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration

	// Extra carries host-defined client attributes (e.g. a display name)
	// the core never inspects.
	Extra map[string]any
}

// HasGrant reports whether name is present in c.Grants.
func (c *Client) HasGrant(name string) bool {
	for _, g := range c.Grants {
		if g == name {
			return true
		}
	}
	return false
}

// HasRedirectURI reports whether uri is byte-equal to one of the client's
// registered redirect URIs.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// User is opaque to the core — it is whatever the model's getUser,
// getUserFromClient, or user-authentication delegate returns.
type User any

// AuthorizationCode is a single-use grant issued by the authorize pipeline
// and redeemed by the authorization_code grant.
type AuthorizationCode struct {
	Code        string
	ExpiresAt   time.Time
	RedirectURI string
	Scope       string
	Client      *Client
	User        User
}

// Expired reports whether the code's expiry instant has passed.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Token is the result of any token-issuing grant.
type Token struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Scope                 string
	Client                *Client
	User                  User

	// AuthorizationCode records the code this token was exchanged for,
	// carried through for audit purposes only (§4.3.1).
	AuthorizationCode string

	// Extra holds extended attributes a model attached to the token.
	// These only reach the wire when the server is configured with
	// AllowExtendedTokenAttributes and the key is not one of the reserved
	// response field names.
	Extra map[string]any
}

// AccessTokenLifetime derives the whole-second lifetime remaining at now,
// per §3's definition; it is never negative.
func (t *Token) AccessTokenLifetime(now time.Time) int {
	if t.AccessTokenExpiresAt.IsZero() {
		return 0
	}
	secs := int(t.AccessTokenExpiresAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// Expired reports whether the access token has passed its expiry instant.
func (t *Token) Expired(now time.Time) bool {
	if t.AccessTokenExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.AccessTokenExpiresAt)
}

// RefreshToken resolves to a (client, user, scope) triple via
// RefreshTokenGetter.GetRefreshToken.
type RefreshToken struct {
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Scope                 string
	Client                *Client
	User                  User
}

// Expired reports whether the refresh token has passed its expiry instant.
func (r *RefreshToken) Expired(now time.Time) bool {
	if r.RefreshTokenExpiresAt.IsZero() {
		return false
	}
	return !now.Before(r.RefreshTokenExpiresAt)
}
