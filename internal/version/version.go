// Package version carries build metadata stamped in at link time with
// -ldflags "-X github.com/banshee-data/rcal/internal/version.Version=...".
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the version followed by the short commit, e.g. "1.2.0+ab12cd3".
func String() string {
	sha := GitSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return Version + "+" + sha
}
