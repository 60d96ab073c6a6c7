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
	"github.com/oauthforge/oauth2/pkg/validators"
)

// passwordGrant implements RFC 6749 §4.3: the client collects the
// resource owner's username and password directly and exchanges them for
// an access token. Deprecated by the working group for anything but
// first-party/legacy migration use, but still mandatory wire format.
type passwordGrant struct {
	cfg Config
}

func (g *passwordGrant) Handle(ctx context.Context, req *model.Request, client *model.Client) (*model.Token, error) {
	username := req.Param("username")
	password := req.Param("password")
	if username == "" || password == "" {
		return nil, model.New(model.KindInvalidRequest, "username and password are required")
	}
	// §4.3.2 / Appendix A: both fields are unicode-char-no-crlf, not NQCHAR —
	// passwords routinely contain characters scope/client-id forbid.
	if !validators.UNICODECHARNOCRLF(username) || !validators.UNICODECHARNOCRLF(password) {
		return nil, model.New(model.KindInvalidRequest, "username and password must not contain control characters")
	}

	getter, err := model.Require[model.PasswordUserGetter](g.cfg.Model, "PasswordUserGetter (GetUser)")
	if err != nil {
		return nil, err
	}

	user, err := getter.GetUser(ctx, username, password)
	if err != nil {
		return nil, model.Wrap(err)
	}
	if user == nil {
		return nil, model.New(model.KindInvalidGrant, "username or password is invalid")
	}

	return issueToken(ctx, g.cfg, client, user, getScope(req), true, "")
}
