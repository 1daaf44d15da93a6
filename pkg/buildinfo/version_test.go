package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = "v0.3.0"

	s := String()
	if !strings.Contains(s, "version: v0.3.0") {
		t.Errorf("String() = %q, missing version", s)
	}
	if !strings.Contains(Template(), "v0.3.0") {
		t.Errorf("Template() = %q, missing version", Template())
	}
}

func TestUserAgent(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = "v1.2.3"

	if got := UserAgent(); got != "stackdoc/v1.2.3" {
		t.Errorf("UserAgent() = %q, want stackdoc/v1.2.3", got)
	}
	if !strings.Contains(String(), "\ngo: ") {
		t.Errorf("String() = %q, missing go version", String())
	}
}
