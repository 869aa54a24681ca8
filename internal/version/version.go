// Package version carries the build identity of the cinder tools.
package version

import "github.com/fatih/color"

// Release components. Each is a separate variable so a release build can
// override any of them via -ldflags.
var (
	Major      = "0"
	Minor      = "1"
	Patch      = "0"
	Prerelease = "dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Version is the full semantic version, with each component colored for
// terminal output. Rendering obeys the global color.NoColor switch.
var Version = render()

func render() string {
	v := majorColor.Sprint(Major) + "." + minorColor.Sprint(Minor) + "." + patchColor.Sprint(Patch)
	if Prerelease != "" {
		v += "-" + Prerelease
	}
	return v
}
