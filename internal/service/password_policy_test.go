package service

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng!Password", false},
		{"valid with punctuation", "Correct.Horse9Battery", false},
		{"too short", "Sh0rt!pw", true},
		{"no uppercase", "weak0!password22", true},
		{"no lowercase", "WEAK0!PASSWORD22", true},
		{"no digit", "Weakest!Password", true},
		{"no symbol", "Weak0Password223", true},
		{"empty", "", true},
		{"exactly minimum length", "Aa1!aaaaaaaa", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, 12)
			if tt.wantErr {
				if !errors.Is(err, ErrWeakPassword) {
					t.Fatalf("expected ErrWeakPassword, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid password, got %v", err)
			}
		})
	}
}
