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

// Package responsetypes implements the response_type values the /authorize
// endpoint dispatches on (RFC 6749 §3.1.1, §4.1, §4.2.1).
package responsetypes

import (
	"context"
	"time"

	"github.com/oauthforge/oauth2/model"
)

// Code is the response_type value for the authorization code flow
// (RFC 6749 §4.1.1): the only response type this module issues.
const Code = "code"

// Token is the response_type value RFC 6749 §4.2 (implicit grant) reserves.
// It is deliberately left unregistered: the implicit grant is out of scope
// for this module (the OAuth 2.0 Security BCP recommends against it), but
// the constant is exported so a host's dispatch table can name it
// explicitly in an "unsupported_response_type" diagnostic instead of
// silently 404ing.
const Token = "token"

// Config carries the settings CodeResponseType is constructed with.
type Config struct {
	AuthorizationCodeLifetime time.Duration
	Model                     model.Model
}

// CodeResponseType implements the "code" response_type: it mints a
// single-use authorization code bound to the requesting client, user, and
// redirect_uri, and persists it via the model.
type CodeResponseType struct {
	cfg Config
}

// New constructs a CodeResponseType bound to cfg.
func New(cfg Config) *CodeResponseType {
	return &CodeResponseType{cfg: cfg}
}

// Issue mints and persists an authorization code for client/user/scope,
// redirectable to redirectURI (§4.1.2).
func (rt *CodeResponseType) Issue(ctx context.Context, client *model.Client, user model.User, redirectURI, scope string) (*model.AuthorizationCode, error) {
	saver, err := model.Require[model.AuthorizationCodeSaver](rt.cfg.Model, "AuthorizationCodeSaver (SaveAuthorizationCode)")
	if err != nil {
		return nil, err
	}

	code, err := rt.generateCode(ctx, client, user)
	if err != nil {
		return nil, err
	}

	ac := &model.AuthorizationCode{
		Code:        code,
		ExpiresAt:   time.Now().Add(rt.cfg.AuthorizationCodeLifetime),
		RedirectURI: redirectURI,
		Scope:       scope,
		Client:      client,
		User:        user,
	}

	saved, err := saver.SaveAuthorizationCode(ctx, ac, client, user)
	if err != nil {
		return nil, model.Wrap(err)
	}
	return saved, nil
}

func (rt *CodeResponseType) generateCode(ctx context.Context, client *model.Client, user model.User) (string, error) {
	if gen, ok := model.Optional[model.AuthorizationCodeGenerator](rt.cfg.Model); ok {
		if code, err := gen.GenerateAuthorizationCode(ctx, client, user); err != nil {
			return "", model.Wrap(err)
		} else if code != "" {
			return code, nil
		}
	}
	return defaultGenerate()
}
