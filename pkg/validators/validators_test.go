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

package validators

import "testing"

// TestPurpose: Validates VSCHAR accepts only the printable ASCII range required for client credentials.
// Scope: Unit Test
// Security: RFC 6749 Appendix A (client_id / client_secret character class)
// Expected: control characters and empty strings are rejected; printable ASCII is accepted.
func TestVSCHAR(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"c1", true},
		{"client-id_123", true},
		{"has\ttab", false},
		{"has\nnewline", false},
		{string(rune(0x7F)), false},
		{string(rune(0x20)), true},
		{string(rune(0x7E)), true},
	}
	for _, c := range cases {
		if got := VSCHAR(c.in); got != c.want {
			t.Errorf("VSCHAR(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

// TestPurpose: Validates NCHAR matches the restricted token alphabet used by grant_type.
// Scope: Unit Test
// Expected: alphanumerics, '-', '.', '_' accepted; space and slash rejected.
func TestNCHAR(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"authorization_code", true},
		{"client.credentials-v2", true},
		{"has space", false},
		{"has/slash", false},
	}
	for _, c := range cases {
		if got := NCHAR(c.in); got != c.want {
			t.Errorf("NCHAR(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNQSCHAR(t *testing.T) {
	if !NQSCHAR("read write") {
		t.Error("expected space-delimited scope blob to be valid NQSCHAR")
	}
	if NQSCHAR("bad\"quote") {
		t.Error("expected quote character to be rejected")
	}
}

func TestUNICODECHARNOCRLF(t *testing.T) {
	if !UNICODECHARNOCRLF("p@ssw0rd 日本語") {
		t.Error("expected unicode password to be accepted")
	}
	if UNICODECHARNOCRLF("bad\r\ninjection") {
		t.Error("expected CRLF to be rejected")
	}
}

func TestURI(t *testing.T) {
	if !URI("https://client.example.com/cb") {
		t.Error("expected absolute https URI to be valid")
	}
	if URI("/relative/path") {
		t.Error("expected relative path to be rejected as a redirect URI")
	}
	if URI("") {
		t.Error("expected empty string to be rejected")
	}
}

// TestPurpose: Validates Scope splits on spaces and discards empty fields
// from repeated or leading/trailing separators.
// Scope: Unit Test
// Expected: "profile  email " yields exactly ["profile", "email"].
func TestScope(t *testing.T) {
	got := Scope("profile  email ")
	want := []string{"profile", "email"}
	if len(got) != len(want) {
		t.Fatalf("Scope() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Scope() = %v, want %v", got, want)
		}
	}
}

// TestPurpose: Validates ScopeContains treats scope as a subset check.
// Scope: Unit Test
// Security: Scope enforcement (RFC 6750 Section 3.3)
// Expected: a grant of "profile email" satisfies "profile" but not "admin".
func TestScopeContains(t *testing.T) {
	if !ScopeContains("profile email", "profile") {
		t.Error("expected profile to be satisfied")
	}
	if ScopeContains("profile email", "admin") {
		t.Error("expected admin to be unsatisfied")
	}
}
