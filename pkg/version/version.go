package version

import (
	"os"
	"runtime"
	"strings"
)

// Version is updated automatically as part of the build process
//
// DO NOT EDIT
var Version = undefinedVersion

const undefinedVersion = "undefined"

func init() {
	// Use `$OUTBOUND_POLICY_VERSION_OVERRIDE` as the version only if the
	// version wasn't set at link time.
	if Version == undefinedVersion {
		override := os.Getenv("OUTBOUND_POLICY_VERSION_OVERRIDE")
		if override != "" {
			Version = override
		}
	}
}

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Channel   string `json:"channel,omitempty"`
	GoVersion string `json:"goVersion"`
}

// Get returns the Info of the running build.
func Get() Info {
	return Info{
		Version:   parseVersion(Version),
		Channel:   parseChannel(Version),
		GoVersion: runtime.Version(),
	}
}

func parseVersion(version string) string {
	if parts := strings.SplitN(version, "-", 2); len(parts) == 2 {
		return parts[1]
	}
	return version
}

func parseChannel(version string) string {
	if parts := strings.SplitN(version, "-", 2); len(parts) == 2 {
		return parts[0]
	}
	return ""
}
