package tunnel

import "runtime/debug"

// ResetInstance clears the process-wide controller between tests.
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}

// SetVersionSources swaps the version inputs and returns a restore func.
func SetVersionSources(build string, info func() (*debug.BuildInfo, bool)) func() {
	prevBuild, prevInfo := buildVersion, readBuildInfo
	buildVersion = build
	if info != nil {
		readBuildInfo = info
	}
	return func() {
		buildVersion, readBuildInfo = prevBuild, prevInfo
	}
}
