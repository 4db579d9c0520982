package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-at-least-16-chars!!"

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService should reject a short secret")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := ts.Generate("session-42")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not a three-part JWT", token)
	}

	sessionID, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sessionID != "session-42" {
		t.Errorf("subject = %q, want %q", sessionID, "session-42")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	ts, _ := NewTokenService(testSecret)

	token, err := ts.GenerateWithDuration("session-1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration: %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate should reject an expired token")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	signer, _ := NewTokenService(testSecret)
	verifier, _ := NewTokenService("a-completely-different-secret!!")

	token, _ := signer.Generate("session-1")
	if _, err := verifier.Validate(token); err == nil {
		t.Fatal("Validate should reject a token signed with another secret")
	}
}

func TestValidateGarbage(t *testing.T) {
	ts, _ := NewTokenService(testSecret)
	for _, bad := range []string{"", "garbage", "a.b.c"} {
		if _, err := ts.Validate(bad); err == nil {
			t.Errorf("Validate(%q) should fail", bad)
		}
	}
}
