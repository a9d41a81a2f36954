package native

import "testing"

func TestParseSpecifierAndMatches(t *testing.T) {
	spec, err := ParseSpecifier(">=2.8.1,<3")
	if err != nil {
		t.Fatalf("ParseSpecifier error: %v", err)
	}

	tests := []struct {
		version string
		want    bool
	}{
		{"2.8.1", true},
		{"2.9.0", true},
		{"2.8.0", false},
		{"3.0.0", false},
	}
	for _, tt := range tests {
		got, err := spec.Matches(tt.version)
		if err != nil {
			t.Fatalf("Matches(%q) error: %v", tt.version, err)
		}
		if got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestEmptySpecifierMatchesAnyVersion(t *testing.T) {
	spec, err := ParseSpecifier("")
	if err != nil {
		t.Fatalf("ParseSpecifier error: %v", err)
	}
	ok, err := spec.Matches("0.0.1")
	if err != nil {
		t.Fatalf("Matches error: %v", err)
	}
	if !ok {
		t.Error("expected empty specifier to match any version")
	}
}

func TestBestReturnsHighestMatchingVersion(t *testing.T) {
	spec, err := ParseSpecifier(">=1.0.0,<2.0.0")
	if err != nil {
		t.Fatalf("ParseSpecifier error: %v", err)
	}
	best, ok, err := spec.Best([]string{"0.9.0", "1.0.0", "1.5.0", "1.9.9", "2.0.0"})
	if err != nil {
		t.Fatalf("Best error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if best != "1.9.9" {
		t.Errorf("Best() = %q, want %q", best, "1.9.9")
	}
}

func TestBestReportsNoMatch(t *testing.T) {
	spec, err := ParseSpecifier(">=5.0.0")
	if err != nil {
		t.Fatalf("ParseSpecifier error: %v", err)
	}
	_, ok, err := spec.Best([]string{"1.0.0", "2.0.0"})
	if err != nil {
		t.Fatalf("Best error: %v", err)
	}
	if ok {
		t.Error("expected no match")
	}
}

func TestParseSpecifierRejectsInvalidSyntax(t *testing.T) {
	if _, err := ParseSpecifier("not a specifier!!"); err == nil {
		t.Error("expected an error for invalid specifier syntax")
	}
}
