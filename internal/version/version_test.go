package version

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in                     string
		major, minor, fix, pre int
	}{
		{"0.1.0", 0, 1, 0, 0},
		{"1.12.3", 1, 12, 3, 0},
		{"2.0.1-pr7", 2, 0, 1, 7},
		{"broken", 0, 0, 0, 0},
	}
	for _, test := range tests {
		major, minor, fix, pre := parse(test.in)
		if major != test.major || minor != test.minor || fix != test.fix || pre != test.pre {
			t.Errorf(
				"parse(%q) = %d.%d.%d-%d, want %d.%d.%d-%d", test.in, major, minor, fix, pre,
				test.major, test.minor, test.fix, test.pre,
			)
		}
	}
}

func TestBanner(t *testing.T) {
	if got := Banner(); got != "sigvault v"+VERSION {
		t.Errorf("unexpected banner %q", got)
	}
}
