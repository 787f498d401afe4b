package tunnel

import (
	"runtime/debug"
	"strings"
)

// VersionUnknown is reported when no version metadata is available.
const VersionUnknown = "None"

const modulePath = "bslocal"

// buildVersion may be set at link time:
//
//	go build -ldflags "-X bslocal/internal/tunnel.buildVersion=v1.4.0"
var buildVersion string

var readBuildInfo = debug.ReadBuildInfo

// PackageVersion returns this module's version, or VersionUnknown. It never
// fails.
func PackageVersion() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return VersionUnknown
	}
	if info.Main.Path == modulePath && usableVersion(info.Main.Version) {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep != nil && dep.Path == modulePath && usableVersion(dep.Version) {
			return dep.Version
		}
	}
	return VersionUnknown
}

func usableVersion(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "(devel)"
}
