package install

import (
	"testing"
)

func TestPickBestVersionPrefersMostSatisfiedSelectors(t *testing.T) {
	candidates := []string{"1.0.0", "1.2.0", "1.2.3", "2.0.0"}
	selectors := []string{"^1.0.0", "^1.0.0", ">=1.2.0"}

	got, err := pickBestVersion("left-pad", candidates, selectors)
	if err != nil {
		t.Fatalf("pickBestVersion error: %v", err)
	}
	if got != "1.2.3" {
		t.Errorf("pickBestVersion = %q, want %q", got, "1.2.3")
	}
}

func TestPickBestVersionTieBreaksOnHighestVersion(t *testing.T) {
	candidates := []string{"1.0.0", "1.5.0"}
	selectors := []string{"*"}

	got, err := pickBestVersion("left-pad", candidates, selectors)
	if err != nil {
		t.Fatalf("pickBestVersion error: %v", err)
	}
	if got != "1.5.0" {
		t.Errorf("pickBestVersion = %q, want %q", got, "1.5.0")
	}
}

func TestPickBestVersionReturnsUnsatisfiableError(t *testing.T) {
	candidates := []string{"1.0.0"}
	selectors := []string{"^2.0.0"}

	_, err := pickBestVersion("left-pad", candidates, selectors)
	if err == nil {
		t.Fatal("expected an UnsatisfiableSelectorError")
	}
	if _, ok := err.(*UnsatisfiableSelectorError); !ok {
		t.Errorf("error = %T, want *UnsatisfiableSelectorError", err)
	}
}

func TestPickBestVersionReturnsInstallConflictErrorForIncompatibleExactSelectors(t *testing.T) {
	candidates := []string{"1.0.0", "1.1.0"}
	selectors := []string{"=1.0.0", "=1.1.0"}

	_, err := pickBestVersion("left-pad", candidates, selectors)
	if err == nil {
		t.Fatal("expected an InstallConflictError")
	}
	conflict, ok := err.(*InstallConflictError)
	if !ok {
		t.Fatalf("error = %T, want *InstallConflictError", err)
	}
	if conflict.Package != "left-pad" {
		t.Errorf("conflict.Package = %q, want %q", conflict.Package, "left-pad")
	}
}

func TestPickBestVersionIgnoresUnparsableCandidates(t *testing.T) {
	candidates := []string{"not-a-version", "1.0.0"}
	selectors := []string{"*"}

	got, err := pickBestVersion("left-pad", candidates, selectors)
	if err != nil {
		t.Fatalf("pickBestVersion error: %v", err)
	}
	if got != "1.0.0" {
		t.Errorf("pickBestVersion = %q, want %q", got, "1.0.0")
	}
}

func TestUniqueStringsDeduplicatesPreservingOrder(t *testing.T) {
	got := uniqueStrings([]string{"^1.0.0", "^1.0.0", "*", "^1.0.0", "*"})
	want := []string{"^1.0.0", "*"}
	if len(got) != len(want) {
		t.Fatalf("uniqueStrings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("uniqueStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
