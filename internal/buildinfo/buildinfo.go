// Package buildinfo carries build-time metadata injected through -ldflags.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Set with -ldflags "-X github.com/fieldarchive/unitlabel/internal/buildinfo.version=v1.0.0".
var (
	version   string
	buildDate string
)

// Current returns the metadata of the running binary.
func Current() *Info {
	return &Info{Version: version, BuildDate: buildDate}
}

// Info holds build-time metadata. It is not part of the configuration.
type Info struct {
	Version   string // git tag of the build
	BuildDate string
}

// GetVersion returns the version, or UnknownValue.
func (i *Info) GetVersion() string {
	if i == nil || i.Version == "" {
		return UnknownValue
	}
	return i.Version
}

// GetBuildDate returns the build date, or UnknownValue.
func (i *Info) GetBuildDate() string {
	if i == nil || i.BuildDate == "" {
		return UnknownValue
	}
	return i.BuildDate
}

// Release is the release name reported to telemetry.
func (i *Info) Release() string {
	return "unitlabel@" + i.GetVersion()
}

func (i *Info) String() string {
	return fmt.Sprintf("unitlabel %s (built %s)", i.GetVersion(), i.GetBuildDate())
}
