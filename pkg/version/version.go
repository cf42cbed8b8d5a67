// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/vanderheijden86/classdesk/pkg/version.Version=...".
package version

var Version = "v0.1.0-dev"
