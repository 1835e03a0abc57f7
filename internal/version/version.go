// ABOUTME: Version constants for tactus-go
// ABOUTME: Identifies the build in handshakes, mDNS records, and logs
package version

const (
	// Version is the semantic version of this build.
	Version = "0.1.0"

	// Product is the product name reported in device info.
	Product = "tactus-go"

	// Manufacturer is the vendor name reported in device info.
	Manufacturer = "Tactus Audio"
)
