package card

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John O'Doe-Smith!!", "john_o_doe_smith"},
		{"Jane Doe", "jane_doe"},
		{"  --Mary   Ann--  ", "mary_ann"},
		{"player 42", "player_42"},
		{"Zoë Ångström", "zoë_ångström"},
		{"../../etc/passwd", "etc_passwd"},
		{"!!!", FallbackSlug},
		{"", FallbackSlug},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("Jane Doe"); got != "jane_doe.pdf" {
		t.Fatalf("Filename = %q", got)
	}
}
