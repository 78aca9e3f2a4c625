package login

import (
	"errors"
	"testing"
)

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		name string
		pwd  string
		ok   bool
	}{
		{name: "valid mixed", pwd: "Pomona-Press-2025", ok: true},
		{name: "unicode symbol", pwd: "Kingston°Black7", ok: true},
		{name: "short", pwd: "Ab1!", ok: false},
		{name: "no symbol", pwd: "KingstonBlack77", ok: false},
		{name: "no upper", pwd: "kingston-black-7", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tc.pwd)
			if tc.ok && err != nil {
				t.Fatalf("expected valid password, got error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}
