// ABOUTME: Tests for version constants
// ABOUTME: Guards the identity strings sent in handshakes and mDNS records
package version

import (
	"strconv"
	"strings"
	"testing"
)

func TestVersionIsSemver(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Fatalf("Version = %q, want major.minor.patch", Version)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			t.Errorf("Version component %q is not numeric", p)
		}
	}
}

func TestIdentityStrings(t *testing.T) {
	// These appear verbatim in device_info payloads and mDNS TXT
	// records; changing them changes what subscribers display.
	if Product != "tactus-go" {
		t.Errorf("Product = %q, want %q", Product, "tactus-go")
	}
	if Manufacturer != "Tactus Audio" {
		t.Errorf("Manufacturer = %q, want %q", Manufacturer, "Tactus Audio")
	}
}
