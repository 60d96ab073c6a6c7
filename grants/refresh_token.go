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

// refreshTokenGrant implements RFC 6749 §6: redeeming a refresh token for
// a new access token, optionally rotating the refresh token itself.
type refreshTokenGrant struct {
	cfg Config
}

func (g *refreshTokenGrant) Handle(ctx context.Context, req *model.Request, client *model.Client) (*model.Token, error) {
	token := req.Param("refresh_token")
	if token == "" {
		return nil, model.New(model.KindInvalidRequest, "refresh_token is required")
	}

	getter, err := model.Require[model.RefreshTokenGetter](g.cfg.Model, "RefreshTokenGetter (GetRefreshToken)")
	if err != nil {
		return nil, err
	}

	rt, err := getter.GetRefreshToken(ctx, token)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if rt == nil {
		return nil, model.New(model.KindInvalidGrant, "refresh token is invalid")
	}
	if rt.Client == nil || rt.Client.ID != client.ID {
		return nil, model.New(model.KindInvalidGrant, "refresh token was not issued to this client")
	}
	if rt.Expired(time.Now()) {
		return nil, model.New(model.KindInvalidGrant, "refresh token has expired")
	}

	// §6: a requested scope may only narrow, never broaden, the scope
	// originally granted.
	scope := rt.Scope
	if requested := getScope(req); requested != "" {
		if !isSubsetScope(requested, rt.Scope) {
			return nil, model.New(model.KindInvalidScope, "requested scope exceeds the scope originally granted")
		}
		scope = requested
	}

	rotate := g.cfg.rotateRefreshToken()
	if rotate {
		revoker, err := model.Require[model.RefreshTokenRevoker](g.cfg.Model, "RefreshTokenRevoker (RevokeToken)")
		if err != nil {
			return nil, err
		}
		if _, err := revoker.RevokeToken(ctx, token); err != nil {
			return nil, model.Wrap(err)
		}
	}

	tok, err := issueToken(ctx, g.cfg, rt.Client, rt.User, scope, rotate, "")
	if err != nil {
		return nil, err
	}
	// When not rotating, the presented refresh token remains valid for
	// future exchanges since it was never revoked above — it is not
	// echoed back on the issued token (§4.3.4).
	return tok, nil
}

// isSubsetScope reports whether every space-delimited element of requested
// is present in granted, using the common space-delimited convention
// (§3.3). The refresh_token grant always applies this check; a model's
// model.ScopeValidator, when present, runs afterwards on the resulting
// scope and does not replace it.
func isSubsetScope(requested, granted string) bool {
	grantedSet := make(map[string]struct{})
	for _, s := range splitScope(granted) {
		grantedSet[s] = struct{}{}
	}
	for _, s := range splitScope(requested) {
		if _, ok := grantedSet[s]; !ok {
			return false
		}
	}
	return true
}

func splitScope(scope string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(scope); i++ {
		if i == len(scope) || scope[i] == ' ' {
			if i > start {
				out = append(out, scope[start:i])
			}
			start = i + 1
		}
	}
	return out
}
