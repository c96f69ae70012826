// Package version reports the build metadata of the running binary.
package version

// Overridden at build time via -ldflags "-X urlguard/internal/app/version.buildVersion=...".
var (
	buildVersion = "dev"
	builtAt      = "unknown"
)

type Info struct {
	Version string `json:"version"`
	BuiltAt string `json:"builtAt"`
}

func Get() Info {
	return Info{
		Version: buildVersion,
		BuiltAt: builtAt,
	}
}
