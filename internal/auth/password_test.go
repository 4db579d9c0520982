package auth

import (
	"strings"
	"testing"
)

// bcrypt minimum cost keeps the suite fast.
func testPasswords() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHashAndVerify(t *testing.T) {
	ps := testPasswords()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash %q does not look like bcrypt output", hash)
	}

	if err := ps.Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify(correct) = %v, want nil", err)
	}
	if err := ps.Verify(hash, "wrong password"); err == nil {
		t.Error("Verify(wrong) should fail")
	}
}

func TestHashesAreSalted(t *testing.T) {
	ps := testPasswords()

	h1, _ := ps.Hash("same password")
	h2, _ := ps.Hash("same password")
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	ps := testPasswords()

	if _, err := ps.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("Hash should reject passwords over 72 bytes")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	ps := testPasswords()

	if err := ps.Verify("not-a-bcrypt-hash", "whatever"); err == nil {
		t.Error("Verify should fail on a malformed hash")
	}
}
