package script

import "testing"

func TestRender(t *testing.T) {
	cases := []struct {
		name      string
		template  string
		firstName string
		want      string
	}{
		{"curly token", "Hi {Name}, this is Pastor Dave.", "Sarah", "Hi Sarah, this is Pastor Dave."},
		{"square token", "Hi [Name]!", "Sarah", "Hi Sarah!"},
		{"both tokens", "{Name} and [Name]", "Sam", "Sam and Sam"},
		{"empty first name defaults", "Hello {Name} and [Name]", "", "Hello Friend and Friend"},
		{"whitespace first name defaults", "Hello {Name}", "   ", "Hello Friend"},
		{"unknown tokens untouched", "Hi {Name}, about {Event}", "Joy", "Hi Joy, about {Event}"},
		{"no tokens", "Good morning.", "Joy", "Good morning."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Render(tc.template, tc.firstName)
			if got != tc.want {
				t.Fatalf("Render(%q, %q) = %q, want %q", tc.template, tc.firstName, got, tc.want)
			}
		})
	}
}

func TestRender_IdempotentWhenNoTokensRemain(t *testing.T) {
	once := Render("Hi {Name} [Name]", "Ann")
	twice := Render(once, "Other")
	if once != twice {
		t.Fatalf("expected second pass to be a no-op, got %q then %q", once, twice)
	}
}
