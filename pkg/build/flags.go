// SPDX-License-Identifier: MIT
//
// Package build carries the build metadata embedded with -ldflags:
//
//	go build -ldflags "-X sessionkey/pkg/build.buildName=sessionkey \
//	  -X sessionkey/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds run without the flags and report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the info the way the version command prints it.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

const description = "Musical key and tempo estimation service"

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        "sessionkey",
		Description: description,
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
)

var (
	ErrMissingName    = errors.New("BuildName is required")
	ErrMissingTime    = errors.New("BuildTime is required")
	ErrMissingCommit  = errors.New("BuildCommit is required")
	ErrMissingVersion = errors.New("BuildVersion is required")
)

// Initialize copies the ldflags variables into the build info. It returns
// an error naming the first missing flag and leaves the dev values in place
// in that case, so callers may treat the error as a warning.
func Initialize() error {
	switch {
	case buildName == "":
		return ErrMissingName
	case buildTime == "":
		return ErrMissingTime
	case buildCommit == "":
		return ErrMissingCommit
	case buildVersion == "":
		return ErrMissingVersion
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}
