package version

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"git windows build", "git version 2.43.0.windows.1", "2.43.0"},
		{"nmap", "Nmap version 7.94 ( https://nmap.org )", "7.94"},
		{"nmap multiline", "\nNmap version 7.80 ( https://nmap.org )\nPlatform: x86_64-pc-windows\n", "7.80"},
		{"node", "v20.11.0\r\n", "20.11.0"},
		{"adb", "Android Debug Bridge version 1.0.41\nVersion 34.0.5-10900879\nInstalled as C:\\adb.exe", "1.0.41"},
		{"scrcpy", "scrcpy 3.3.1 <https://github.com/Genymobile/scrcpy>", "3.3.1"},
		{"generic version keyword", "tool version 4.5.6 build 7", "4.5.6"},
		{"two part", "release 12.3", "12.3"},
		{"single number", "build 42", "42"},
		{"no digits", "  unknown  ", "unknown"},
		{"empty", "", ""},
		{"whitespace", " \n\t", ""},
		// "node" marker present but pattern misses: falls back to generic patterns
		{"node marker without v", "node 18", "18"},
		// marker is case sensitive, pattern is not
		{"nmap lowercase", "nmap version 7.94", "7.94"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.output); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.output, got, tt.want)
			}
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	inputs := []string{
		"git version 2.43.0.windows.1",
		"Nmap version 7.94 ( https://nmap.org )",
		"v20.11.0",
		"Android Debug Bridge version 1.0.41",
		"scrcpy 3.3.1",
		"42",
		"7.94",
		"gibberish",
		"",
	}
	for _, in := range inputs {
		once := Extract(in)
		if twice := Extract(once); twice != once {
			t.Errorf("Extract not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestExtract_Total(t *testing.T) {
	// arbitrary input must never panic
	for _, in := range []string{"\x00\xff", "((((", "v", "version", "....", "1..2"} {
		_ = Extract(in)
	}
}
