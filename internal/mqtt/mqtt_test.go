package mqtt

import (
	"regexp"
	"testing"
)

func TestNewClientID(t *testing.T) {
	re := regexp.MustCompile(`^irrigation-[0-9a-f]{8}$`)
	a := NewClientID("irrigation")
	b := NewClientID("irrigation")
	if !re.MatchString(a) {
		t.Errorf("client id %q does not match %s", a, re)
	}
	if a == b {
		t.Errorf("expected distinct ids per call, got %q twice", a)
	}
}

func TestNewClientIDNoPrefix(t *testing.T) {
	id := NewClientID("")
	if !regexp.MustCompile(`^[0-9a-f]{8}$`).MatchString(id) {
		t.Errorf("client id %q", id)
	}
}
