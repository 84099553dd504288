package sanitize

import (
	"testing"

	"user-auth/internal/apperr"
)

func TestUserInput_Clean(t *testing.T) {
	s := UserInput{}
	cases := []struct {
		name  string
		fn    func(string) (string, error)
		input string
		want  string
	}{
		{"username strips symbols", s.Username, "  al-ice_99! ", "alice99"},
		{"username keeps unicode letters", s.Username, "josé", "josé"},
		{"email lower and trim", s.Email, "  Alice@Example.COM ", "alice@example.com"},
		{"password only trims", s.Password, "  Pa ss!  ", "Pa ss!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestUserInput_Empty(t *testing.T) {
	s := UserInput{}
	cases := []struct {
		name    string
		fn      func(string) (string, error)
		input   string
		message string
	}{
		{"empty username", s.Username, "", "Username is empty"},
		{"username only symbols", s.Username, " -_- ", "Username is empty after sanitize"},
		{"empty email", s.Email, "", "Email is empty"},
		{"blank email", s.Email, "   ", "Email is empty after sanitize"},
		{"empty password", s.Password, "", "Password is empty"},
		{"blank password", s.Password, "\t ", "Password is empty after sanitize"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.fn(tc.input)
			if !apperr.IsKind(err, apperr.InvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if apperr.PublicMessage(err) != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, apperr.PublicMessage(err))
			}
		})
	}
}
