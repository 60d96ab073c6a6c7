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

// Package tokentypes implements the token_type values a token response
// carries (RFC 6750 for "Bearer") and the wire encoding/extraction rules
// that go with each.
package tokentypes

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/oauthforge/oauth2/model"
)

// Bearer is the token_type value this module issues (RFC 6750 §2.1).
const Bearer = "Bearer"

// authHeaderPattern matches "Bearer <b64token>" per RFC 6750 §2.1's
// b64token grammar (unreserved base64url alphabet plus padding).
var authHeaderPattern = regexp.MustCompile(`^Bearer\s+([A-Za-z0-9\-._~+/]+=*)$`)

// tokenResponseFields are the reserved JSON keys of a token response
// (§6). Extended attributes colliding with one of these are dropped
// rather than overwriting the protocol field.
var tokenResponseFields = map[string]struct{}{
	"access_token":  {},
	"token_type":    {},
	"expires_in":    {},
	"refresh_token": {},
	"scope":         {},
}

// Encode renders tok as the §6 JSON token response body. allowExtended
// controls whether tok.Extra is merged in — disabled by default at the
// server façade unless a host opts in, since extended attributes are an
// explicit interoperability trade-off (§6, §9 Design Notes).
func Encode(tok *model.Token, allowExtended bool, now time.Time) map[string]any {
	body := map[string]any{
		"access_token": tok.AccessToken,
		"token_type":   Bearer,
	}
	if secs := tok.AccessTokenLifetime(now); secs > 0 {
		body["expires_in"] = secs
	}
	if tok.RefreshToken != "" {
		body["refresh_token"] = tok.RefreshToken
	}
	if tok.Scope != "" {
		body["scope"] = tok.Scope
	}
	if allowExtended {
		for k, v := range tok.Extra {
			if _, reserved := tokenResponseFields[k]; reserved {
				continue
			}
			body[k] = v
		}
	}
	return body
}

// ExtractFromHeader extracts a bearer token from an Authorization header
// value per RFC 6750 §2.1. An empty return with no error means the header
// did not carry a bearer token (the caller should try §2.2/§2.3 instead).
func ExtractFromHeader(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	m := authHeaderPattern.FindStringSubmatch(value)
	if m == nil {
		if strings.HasPrefix(strings.ToLower(value), "bearer") {
			return "", model.New(model.KindInvalidRequest, "malformed Authorization header")
		}
		return "", nil
	}
	return m[1], nil
}

// ExtractFromForm extracts a bearer token from the access_token form
// field per RFC 6750 §2.2. Per §2.2, this method MUST NOT be used unless
// the request body has a content type of application/x-www-form-urlencoded
// and the HTTP method is POST.
func ExtractFromForm(req *model.Request) (string, error) {
	if req.Method != http.MethodPost || !strings.HasPrefix(req.ContentType, "application/x-www-form-urlencoded") {
		return "", nil
	}
	if req.Body == nil {
		return "", nil
	}
	return req.Body.Get("access_token"), nil
}

// ExtractFromQuery extracts a bearer token from the access_token query
// parameter per RFC 6750 §2.3, which the spec discourages outside of
// compatibility needs owing to URI logging exposure.
func ExtractFromQuery(req *model.Request) string {
	if req.Query == nil {
		return ""
	}
	return req.Query.Get("access_token")
}

// Extract applies §2.1–§2.3 and rejects a request presenting the token
// through more than one method (§2, "Clients MUST NOT use more than one
// method") — counted regardless of allowQuery, since a client pairing the
// header or form with a query parameter it isn't even supposed to use is
// still violating the one-method rule. allowQuery controls only whether a
// query-only presentation is actually read as the token (§2.3).
func Extract(req *model.Request, allowQuery bool) (string, error) {
	header, err := ExtractFromHeader(req.Header("Authorization"))
	if err != nil {
		return "", err
	}
	form, err := ExtractFromForm(req)
	if err != nil {
		return "", err
	}
	query := ExtractFromQuery(req)

	sources := req.ParamSources("access_token")
	if header != "" {
		sources++
	}
	if sources > 1 {
		return "", model.New(model.KindInvalidRequest, "bearer token presented via more than one method")
	}

	switch {
	case header != "":
		return header, nil
	case form != "":
		return form, nil
	case allowQuery:
		return query, nil
	default:
		return "", nil
	}
}

// WWWAuthenticate renders the WWW-Authenticate challenge header value for
// a failed AuthenticateHandler call (§3).
func WWWAuthenticate(realm string, authErr *model.Error) string {
	var b strings.Builder
	b.WriteString(`Bearer realm="`)
	b.WriteString(realm)
	b.WriteString(`"`)
	if authErr != nil {
		b.WriteString(`, error="`)
		b.WriteString(string(authErr.Kind))
		b.WriteString(`"`)
		if authErr.Message != "" {
			b.WriteString(`, error_description="`)
			b.WriteString(authErr.Message)
			b.WriteString(`"`)
		}
	}
	return b.String()
}
