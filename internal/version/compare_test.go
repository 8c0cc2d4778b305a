package version

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		found, min string
		want       bool
	}{
		{"20.11.0", "", true},
		{"", "18.0.0", false},
		{"20.11.0", "18.0.0", true},
		{"16.20.2", "18.0.0", false},
		{"2.43.0", "2.43.0", true},
		{"7.94", "7.90", true},
		{"7.80", "7.90", false},
		{"42", "41", true},
		{"1.0.41", "1.0.39", true},
		// not semver, compared by segments
		{"2.43.0.1", "2.43.0.2", false},
		{"2.43.1.0", "2.43.0.9", true},
		{"unknown", "1.0", false},
	}

	for _, tt := range tests {
		if got := Satisfies(tt.found, tt.min); got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.found, tt.min, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	for _, v := range []string{"7.94", "v20", "2.43.0", " 1.0.41 "} {
		if _, err := Parse(v); err != nil {
			t.Errorf("Parse(%q) error = %v", v, err)
		}
	}
	for _, v := range []string{"", "abc", "1.2.3.4"} {
		if _, err := Parse(v); err == nil {
			t.Errorf("Parse(%q) expected error", v)
		}
	}
}
