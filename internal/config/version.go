package config

import (
	"golang.org/x/mod/semver"

	"github.com/untoldecay/elembranch/internal/emverrors"
)

// SupportedFormatVersion is the branch-metadata format version this build
// reads and writes.
const SupportedFormatVersion = "v1.0.0"

// CheckFormatVersion validates that a branch-metadata blob's declared
// format version is one this build can parse: same major version as
// SupportedFormatVersion, at or below it. A future major bump or a
// malformed tag fails with BadFormat rather than attempting to parse
// a format this build doesn't understand.
func CheckFormatVersion(tag string) error {
	if !semver.IsValid(tag) {
		return emverrors.New(emverrors.KindBadFormat, "check_format_version", "invalid version tag: "+tag)
	}
	if semver.Major(tag) != semver.Major(SupportedFormatVersion) {
		return emverrors.New(emverrors.KindBadFormat, "check_format_version", "unsupported major version: "+tag)
	}
	if semver.Compare(tag, SupportedFormatVersion) > 0 {
		return emverrors.New(emverrors.KindBadFormat, "check_format_version", "format version newer than supported: "+tag)
	}
	return nil
}
