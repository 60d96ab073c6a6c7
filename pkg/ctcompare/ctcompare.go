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

// Package ctcompare provides constant-time equality for client secrets
// and token values.
//
// The core pipelines never compare secrets or tokens themselves — per
// §9 of the design, that comparison belongs to the model (it is the model
// that looks a token up and decides whether it matches a stored hash).
// This helper exists so that model implementations in this module
// (examplemodel/*) honor that obligation rather than falling back to
// plain string equality, and so host-authored models have a ready-made,
// audited primitive to reuse.
package ctcompare

import "crypto/subtle"

// Equal reports whether a and b are equal. Inputs of differing length
// return false at once, so their length is not hidden; inputs of equal
// length are compared in time independent of where they first differ.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
