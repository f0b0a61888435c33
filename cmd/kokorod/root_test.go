package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCmd()

	want := map[string]bool{
		"serve":  false,
		"synth":  false,
		"voices": false,
		"health": false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVoicesCommandListsCatalog(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"voices"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("voices: %v", err)
	}

	listing := out.String()
	for _, id := range []string{"af_alloy", "am_adam", "alloy"} {
		if !strings.Contains(listing, id) {
			t.Errorf("voice %q missing from listing", id)
		}
	}
}

func TestSynthRequiresText(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"synth"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("synth without --text succeeded")
	}
}
