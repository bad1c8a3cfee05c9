package campaign

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5551234567", "+15551234567"},
		{"15551234567", "+15551234567"},
		{"+1 (555) 123-4567", "+15551234567"},
		{"555.123.4567", "+15551234567"},
		{"(555) 123-4567 ext", "+15551234567"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if err != nil {
			t.Errorf("NormalizePhone(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhoneRejectsDigitless(t *testing.T) {
	for _, in := range []string{"", "   ", "n/a", "---"} {
		if _, err := NormalizePhone(in); !errors.Is(err, ErrUnusablePhone) {
			t.Errorf("NormalizePhone(%q) err = %v, want ErrUnusablePhone", in, err)
		}
	}
}
