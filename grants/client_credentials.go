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

	"github.com/oauthforge/oauth2/model"
)

// clientCredentialsGrant implements RFC 6749 §4.4: the client authenticates
// as itself and receives an access token scoped to its own capabilities.
// Per §4.4.3, no refresh token is issued.
type clientCredentialsGrant struct {
	cfg Config
}

func (g *clientCredentialsGrant) Handle(ctx context.Context, req *model.Request, client *model.Client) (*model.Token, error) {
	var user model.User
	if getter, ok := model.Optional[model.ClientUserGetter](g.cfg.Model); ok {
		u, err := getter.GetUserFromClient(ctx, client)
		if err != nil {
			return nil, model.Wrap(err)
		}
		user = u
	}

	return issueToken(ctx, g.cfg, client, user, getScope(req), false, "")
}
