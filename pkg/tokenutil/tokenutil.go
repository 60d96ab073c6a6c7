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

// Package tokenutil generates the opaque random strings the core pipelines
// fall back to when a model does not override token/code generation.
package tokenutil

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// defaultByteLength yields 256 bits of entropy, base64url-encoded without
// padding, comfortably satisfying RFC 6749's VSCHAR requirement on issued
// tokens and codes.
const defaultByteLength = 32

// Generate returns a cryptographically random, URL-safe opaque token. It
// backs AccessToken, RefreshToken, and AuthorizationCode generation when a
// model does not supply its own generator.
func Generate() (string, error) {
	b := make([]byte, defaultByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CorrelationID returns a request-scoped identifier for log/trace
// correlation. It has no protocol meaning and is never persisted as part
// of token or code state — it exists purely for the ambient observability
// stack.
func CorrelationID() string {
	return uuid.NewString()
}
