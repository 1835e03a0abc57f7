// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers manager construction, service type, and shutdown
package discovery

import (
	"testing"
	"time"
)

func TestServiceType(t *testing.T) {
	if ServiceType != "_tactus._tcp" {
		t.Errorf("ServiceType = %q, want %q", ServiceType, "_tactus._tcp")
	}
}

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Test Server",
		Port:        9730,
	})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	defer mgr.Stop()

	if mgr.config.ServiceName != "Test Server" {
		t.Errorf("ServiceName = %q, want %q", mgr.config.ServiceName, "Test Server")
	}
	if mgr.config.Port != 9730 {
		t.Errorf("Port = %d, want 9730", mgr.config.Port)
	}
	if mgr.Servers() == nil {
		t.Error("Servers() returned nil channel")
	}
}

func TestStopCancelsContext(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Stop Test", Port: 9730})
	mgr.Stop()

	select {
	case <-mgr.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after Stop")
	}
}
