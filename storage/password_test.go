package storage

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"short name", "abc", false},
		{"mixed case", "UserName", false},
		{"with numbers", "user123", false},
		{"starts with number", "1user", false},
		{"with underscore", "test_name", false},
		{"max length 16", "abcdefghijklmnop", false},

		{"empty", "", true},
		{"too short", "ab", true},
		{"too long 17 chars", "abcdefghijklmnopq", true},
		{"with hyphen", "test-name", true},
		{"contains space", "user name", true},
		{"contains dot", "user.name", true},
		{"unicode", "usér", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(InvalidNameError); !ok {
					t.Errorf("ValidateName(%q) returned %T, want InvalidNameError", tt.username, err)
				}
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	password := "testPassword123!"

	hash1, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash1, "$argon2id$") {
		t.Errorf("hash should start with $argon2id$, got: %q", hash1)
	}
	if parts := strings.Split(hash1, "$"); len(parts) != 6 {
		t.Errorf("hash should have 6 parts, got %d: %q", len(parts), hash1)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() second call error = %v", err)
	}
	if hash1 == hash2 {
		t.Error("HashPassword() should salt every hash")
	}
}

func TestVerifyPassword(t *testing.T) {
	password := "testPassword123!"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", password, hash, true},
		{"wrong password", "wrongPassword456!", hash, false},
		{"similar password", "testPassword123?", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", password, "", false},
		{"malformed hash - wrong prefix", password, "$argon2i$v=19$m=65536,t=1,p=4$abc$def", false},
		{"malformed hash - too few parts", password, "$argon2id$v=19", false},
		{"malformed hash - wrong version", password, "$argon2id$v=16$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAA", false},
		{"malformed hash - invalid base64 salt", password, "$argon2id$v=19$m=65536,t=1,p=4$!!!$def", false},
		{"malformed hash - invalid base64 hash", password, "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$!!!", false},
		{"malformed hash - invalid params", password, "$argon2id$v=19$invalid$abc$def", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("benchmarkPassword123!")
	}
}
