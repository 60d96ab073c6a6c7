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

package pgmodel

import "testing"

// TestPurpose: Validates that Hash/Verify round-trip correctly and that
// a wrong password is rejected.
// Scope: Unit Test
// Security: Argon2id password hashing (OWASP ASVS 2.4)
// Expected: Verify returns true for the original password, false for any other.
func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(64*1024, 3, 2, 16, 32)

	encoded, err := h.Hash("s3cr3t-passphrase")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	ok, err := h.Verify("s3cr3t-passphrase", encoded)
	if err != nil || !ok {
		t.Fatalf("expected correct password to verify, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-passphrase", encoded)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail verification, got ok=%v err=%v", ok, err)
	}
}

// TestPurpose: Validates that two hashes of the same password differ
// (random salt per call) and both still verify.
// Scope: Unit Test
// Security: Salt uniqueness prevents rainbow-table attacks (CWE-759)
// Expected: Two encoded hashes of the same password are not byte-equal.
func TestPasswordHasher_UniqueSalt(t *testing.T) {
	h := NewPasswordHasher(64*1024, 3, 2, 16, 32)

	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct encoded hashes across calls")
	}
}

// TestPurpose: Validates that Verify rejects a malformed encoded hash
// rather than panicking.
// Scope: Unit Test
// Expected: Verify returns an error for a non-PHC-formatted string.
func TestPasswordHasher_Verify_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(64*1024, 3, 2, 16, 32)

	if _, err := h.Verify("anything", "not-a-valid-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
