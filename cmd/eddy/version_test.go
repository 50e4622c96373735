package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// TestVersionPretty_Full tests that --full renders every recorded build
// fact, the commit message included.
func TestVersionPretty_Full(t *testing.T) {
	old := versionShowFull
	versionShowFull = true
	defer func() { versionShowFull = old }()

	var out bytes.Buffer
	renderVersionPretty(&out, versionInfo{
		Version:    "0.1.0",
		GitCommit:  "abc1234",
		GitMessage: "tighten frame layout",
		BuildDate:  "2026-08-30",
	})
	s := out.String()
	for _, want := range []string{"eddy 0.1.0", "commit: abc1234", "msg:    tighten frame layout", "built:  2026-08-30"} {
		if !strings.Contains(s, want) {
			t.Fatalf("output misses %q:\n%s", want, s)
		}
	}
}

// TestVersionJSON_Full tests the json format with --full, including that
// an absent commit message is omitted rather than padded to unknown.
func TestVersionJSON_Full(t *testing.T) {
	old := versionShowFull
	versionShowFull = true
	defer func() { versionShowFull = old }()

	var out bytes.Buffer
	if err := renderVersionJSON(&out, versionInfo{Version: "0.1.0", GitCommit: "abc1234", GitMessage: "tighten frame layout"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["git_message"] != "tighten frame layout" {
		t.Fatalf("git_message = %v", payload["git_message"])
	}

	out.Reset()
	if err := renderVersionJSON(&out, versionInfo{Version: "0.1.0"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out.String(), "git_message") {
		t.Fatalf("empty commit message serialized:\n%s", out.String())
	}
}
