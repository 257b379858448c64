package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Error("version must never be empty")
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("unexpected go version: %s", info.GoVersion)
	}
}

func TestString(t *testing.T) {
	got := Info{Version: "1.2.0", GitCommit: "abc1234"}.String()
	if got != "1.2.0 (abc1234)" {
		t.Errorf("unexpected string: %s", got)
	}

	got = Info{Version: "dev"}.String()
	if got != "dev" {
		t.Errorf("unexpected string: %s", got)
	}
}
