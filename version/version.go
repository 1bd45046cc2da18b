// Package version carries build identification for the Security
// Recovery Core binary, injected at link time.
package version

// Build information (injected via ldflags - must NOT have default values)
var (
	Version   string
	GitSHA    string
	BuildDate string
)
