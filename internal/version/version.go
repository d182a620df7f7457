// ABOUTME: Version information for resonate-tape binaries
// ABOUTME: Shown in the TUI header and in startup logs
package version

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name
	Product = "Resonate Tape"

	// Manufacturer identifies who builds it
	Manufacturer = "Resonate"
)
