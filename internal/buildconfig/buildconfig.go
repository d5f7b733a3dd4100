// Package buildconfig exposes version metadata stamped into the
// binary at link time.
package buildconfig

// Overridden via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// Version reports the release version of the running binary.
func Version() string {
	return version
}

// Commit reports the git commit the binary was built from.
func Commit() string {
	return commit
}

// VersionInfo bundles the stamped metadata for the metrics endpoint.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
