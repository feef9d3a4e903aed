// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Set via -ldflags at release build time.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
