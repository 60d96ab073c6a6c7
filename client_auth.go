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

package oauth2

import (
	"encoding/base64"
	"strings"

	"github.com/oauthforge/oauth2/model"
)

// clientCredentials is what §4.2 step 1 resolves off the wire, before any
// syntactic or model validation.
type clientCredentials struct {
	id         string
	secret     string
	secretSent bool
	viaHeader  bool
}

// resolveClientCredentials implements §4.2 step 1: HTTP Basic takes
// precedence, then form fields. It performs no validation beyond parsing —
// invalid_request/invalid_client are raised by the caller, which alone
// knows whether the dispatched grant requires authentication.
func resolveClientCredentials(req *model.Request) (clientCredentials, error) {
	if auth := req.Header("Authorization"); auth != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(auth, prefix) {
			return clientCredentials{}, model.New(model.KindInvalidRequest, "unsupported Authorization scheme")
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, prefix))
		if err != nil {
			return clientCredentials{}, model.New(model.KindInvalidRequest, "malformed Basic credentials")
		}
		id, secret, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return clientCredentials{}, model.New(model.KindInvalidRequest, "malformed Basic credentials")
		}
		return clientCredentials{id: id, secret: secret, secretSent: true, viaHeader: true}, nil
	}

	id := req.Param("client_id")
	secret := req.Param("client_secret")
	return clientCredentials{id: id, secret: secret, secretSent: secret != ""}, nil
}
