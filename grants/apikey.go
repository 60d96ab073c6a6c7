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

// APIKey is the grant_type URN for the bundled extension grant example:
// trading a pre-shared API key (delivered to the resource owner out of
// band) directly for an access token, with no user interaction. It
// demonstrates registering a grant outside the four RFC 6749 built-ins
// via the same Factory shape.
const APIKey = "urn:oauthforge:params:grant-type:api-key"

// APIKeyUserGetter is the capability an api-key grant's model must
// implement: resolving a presented key to the user it was issued to.
type APIKeyUserGetter interface {
	GetUserForAPIKey(ctx context.Context, apiKey string) (model.User, error)
}

// apiKeyGrant is the Factory-conforming implementation registered under
// APIKey; hosts wire it in alongside the four built-ins by merging it into
// the grants map passed to the server façade.
type apiKeyGrant struct {
	cfg Config
}

// NewAPIKeyGrant is the Factory for the api-key extension grant.
func NewAPIKeyGrant(cfg Config) Grant {
	return &apiKeyGrant{cfg: cfg}
}

func (g *apiKeyGrant) Handle(ctx context.Context, req *model.Request, client *model.Client) (*model.Token, error) {
	apiKey := req.Param("api_key")
	if apiKey == "" {
		return nil, model.New(model.KindInvalidRequest, "api_key is required")
	}

	getter, err := model.Require[APIKeyUserGetter](g.cfg.Model, "APIKeyUserGetter (GetUserForAPIKey)")
	if err != nil {
		return nil, err
	}

	user, err := getter.GetUserForAPIKey(ctx, apiKey)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if user == nil {
		return nil, model.New(model.KindInvalidGrant, "api_key is invalid")
	}

	return issueToken(ctx, g.cfg, client, user, getScope(req), true, "")
}
