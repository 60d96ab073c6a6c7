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

// Package validators implements the syntactic character-class predicates
// defined by RFC 6749 Appendix A. These are pure, leaf-level string
// predicates with no knowledge of the protocol state machine around them.
package validators

import "net/url"

// VSCHAR matches %x20-7E — used for client_id, client_secret, state, and
// authorization codes (RFC 6749 Appendix A).
func VSCHAR(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			return false
		}
	}
	return true
}

// NCHAR matches %x2D / %x2E / %x5F / ALPHA / DIGIT — used for grant_type
// and similar short protocol tokens.
func NCHAR(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isNCHARRune(r) {
			return false
		}
	}
	return true
}

func isNCHARRune(r rune) bool {
	switch {
	case r == '-' || r == '.' || r == '_':
		return true
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return false
	}
}

// NQCHAR matches %x21 / %x23-5B / %x5D-7E — used for error codes.
func NQCHAR(s string) bool {
	for _, r := range s {
		if !isNQCHARRune(r) {
			return false
		}
	}
	return true
}

func isNQCHARRune(r rune) bool {
	return r == 0x21 || (r >= 0x23 && r <= 0x5B) || (r >= 0x5D && r <= 0x7E)
}

// NQSCHAR matches NQCHAR | SP — used for scope and error_description.
func NQSCHAR(s string) bool {
	for _, r := range s {
		if r != ' ' && !isNQCHARRune(r) {
			return false
		}
	}
	return true
}

// UNICODECHARNOCRLF matches %x09 / %x20-7E / %x80-D7FF / %xE000-FFFD /
// %x10000-10FFFF — used for username/password in the resource owner
// password credentials grant.
func UNICODECHARNOCRLF(s string) bool {
	for _, r := range s {
		switch {
		case r == 0x09:
		case r >= 0x20 && r <= 0x7E:
		case r >= 0x80 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

// URI reports whether s parses as an absolute URI (scheme present, per
// RFC 6749 §3.1.2's redirection endpoint requirement).
func URI(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

// Scope splits a space-delimited scope string into its individual scope
// tokens, discarding empty fields from repeated or leading/trailing
// spaces. Splitting scope this way is the model's responsibility per §9
// Design Notes — the core pipelines do not call this helper (the
// refresh_token grant's subset check uses its own splitting) — so
// this is offered as an opt-in convenience for model implementations
// that use the common space-delimited convention rather than something
// every model is required to call.
func Scope(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// ScopeContains reports whether requested is satisfied by granted, both
// space-delimited scope strings: every token in requested must also
// appear in granted.
func ScopeContains(granted, requested string) bool {
	set := make(map[string]struct{})
	for _, s := range Scope(granted) {
		set[s] = struct{}{}
	}
	for _, s := range Scope(requested) {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
