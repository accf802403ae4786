// Package version implements tap and Tableau REST API version handling.
package version

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// DevVersion is the version string for development builds.
const DevVersion = "dev"

// BuildVersion is the version string with which the tap is built. Set at
// build time.
var BuildVersion = DevVersion

// Version holds the tap's own version and the REST API version of the
// server it is extracting from.
type Version struct {
	// Tap is the version of the tap binary
	Tap string
	// TapSemver is the parsed semantic version for the tap
	TapSemver *semver.Version

	// APIVersion is the Tableau REST API version in use for this run,
	// either configured or negotiated from the server
	APIVersion string
}

// GetTapVersion returns the tap version string.
func (v *Version) GetTapVersion() string {
	return v.Tap
}

// SetTapVersion parses the version string s and sets it as the tap version.
func (v *Version) SetTapVersion(s string) {
	// if semver parsing fails, sv will be nil
	sv, _ := semver.NewVersion(s)
	v.Tap = s
	if sv != nil {
		v.Tap = fmt.Sprintf("v%s", sv.String())
	}
	v.TapSemver = sv
}

// New returns a Version with the tap version set from the build.
func New() *Version {
	v := &Version{}
	v.SetTapVersion(BuildVersion)
	return v
}
