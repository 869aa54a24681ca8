package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Fatal("Version should have a default value")
	}
	if !strings.Contains(Version, ".") {
		t.Fatalf("Version %q is not a dotted version string", Version)
	}
}

func TestRenderComposesComponents(t *testing.T) {
	origMajor, origMinor, origPatch, origPre := Major, Minor, Patch, Prerelease
	defer func() {
		Major, Minor, Patch, Prerelease = origMajor, origMinor, origPatch, origPre
	}()

	// Simulates build-time -ldflags overrides.
	Major, Minor, Patch, Prerelease = "1", "2", "3", ""
	if got := render(); !strings.Contains(got, "1") || !strings.Contains(got, "2") || !strings.Contains(got, "3") {
		t.Fatalf("render() = %q, want components 1.2.3", got)
	}
	Prerelease = "rc1"
	if got := render(); !strings.HasSuffix(got, "-rc1") {
		t.Fatalf("render() = %q, want -rc1 suffix", got)
	}
}

func TestRenderPlainWithoutColor(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	got := render()
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("render() = %q, want no escape sequences when color is off", got)
	}
	want := Major + "." + Minor + "." + Patch
	if !strings.HasPrefix(got, want) {
		t.Fatalf("render() = %q, want prefix %q", got, want)
	}
}
