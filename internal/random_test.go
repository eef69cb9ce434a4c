package internal

import "testing"

func TestNewResetTokenShape(t *testing.T) {
	token, digest, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if err := ValidResetToken(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
	if digest != HashToken(token) || len(digest) != 64 {
		t.Fatalf("unexpected digest %q", digest)
	}

	other, _, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if other == token {
		t.Fatal("tokens must not repeat")
	}
}

func TestValidResetTokenRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "short", "not base64 !!", "AAAA"} {
		if err := ValidResetToken(in); err == nil {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}
