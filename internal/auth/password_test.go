package auth

import "testing"

func TestHashPassword(t *testing.T) {
	t.Parallel()

	digest, err := HashPassword("password1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if digest == "password1" {
		t.Fatalf("digest must not equal the plaintext")
	}

	if !CheckPassword("password1", digest) {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword("password2", digest) {
		t.Fatalf("wrong password accepted")
	}
	if CheckPassword("password1", "not-a-bcrypt-digest") {
		t.Fatalf("garbage digest accepted")
	}
}
