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
	"time"

	"github.com/oauthforge/oauth2/model"
)

// authorizationCodeGrant implements RFC 6749 §4.1.3: exchanging a single-use
// code minted by AuthorizeHandler for an access token and a refresh token.
type authorizationCodeGrant struct {
	cfg Config
}

func (g *authorizationCodeGrant) Handle(ctx context.Context, req *model.Request, client *model.Client) (*model.Token, error) {
	code := req.Param("code")
	if code == "" {
		return nil, model.New(model.KindInvalidRequest, "code is required")
	}
	redirectURI := req.Param("redirect_uri")

	getter, err := model.Require[model.AuthorizationCodeGetter](g.cfg.Model, "AuthorizationCodeGetter (GetAuthorizationCode)")
	if err != nil {
		return nil, err
	}
	revoker, err := model.Require[model.AuthorizationCodeRevoker](g.cfg.Model, "AuthorizationCodeRevoker (RevokeAuthorizationCode)")
	if err != nil {
		return nil, err
	}

	ac, err := getter.GetAuthorizationCode(ctx, code)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if ac == nil {
		return nil, model.New(model.KindInvalidGrant, "authorization code is invalid")
	}

	// The code must have been issued to the same client presenting it now
	// (§4.1.3 step 3), and — when the original /authorize request carried a
	// redirect_uri — the same redirect_uri must be presented again.
	if ac.Client == nil || ac.Client.ID != client.ID {
		return nil, model.New(model.KindInvalidGrant, "authorization code was not issued to this client")
	}
	if ac.RedirectURI != "" && ac.RedirectURI != redirectURI {
		return nil, model.New(model.KindInvalidGrant, "redirect_uri does not match the value used to request the code")
	}

	// Revoke before checking expiry: a code must be single-use regardless of
	// whether this particular redemption attempt succeeds, so an attacker
	// racing two redemptions of an expired code cannot get two different
	// error codes to distinguish "expired" from "already used" (§4.3.1e).
	revoked, err := revoker.RevokeAuthorizationCode(ctx, code)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if !revoked {
		return nil, model.New(model.KindInvalidGrant, "authorization code has already been used")
	}

	if ac.Expired(time.Now()) {
		return nil, model.New(model.KindInvalidGrant, "authorization code has expired")
	}

	return issueToken(ctx, g.cfg, client, ac.User, ac.Scope, true, code)
}
