package tts_test

import (
	"testing"

	"github.com/example/kokoro-openai-server/internal/tts"
)

func TestCatalog_ResolvesExactIDs(t *testing.T) {
	c := tts.NewCatalog()

	got, err := c.Resolve("af_heart")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got != "af_heart" {
		t.Errorf("Resolve = %q; want af_heart", got)
	}
}

func TestCatalog_ResolvesOpenAIAliases(t *testing.T) {
	c := tts.NewCatalog()

	cases := map[string]string{
		"alloy":   "af_alloy",
		"echo":    "am_echo",
		"fable":   "bm_fable",
		"nova":    "af_nova",
		"onyx":    "am_onyx",
		"shimmer": "af_shimmer",
		"ash":     "am_adam",
		"marin":   "af_river",
	}

	for alias, want := range cases {
		got, err := c.Resolve(alias)
		if err != nil {
			t.Errorf("Resolve(%q): %v", alias, err)
			continue
		}

		if got != want {
			t.Errorf("Resolve(%q) = %q; want %q", alias, got, want)
		}
	}
}

func TestCatalog_AliasMatchingIsCaseInsensitive(t *testing.T) {
	c := tts.NewCatalog()

	got, err := c.Resolve("EcHo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got != "am_echo" {
		t.Errorf("Resolve = %q; want am_echo", got)
	}
}

func TestCatalog_RejectsUnknownVoice(t *testing.T) {
	c := tts.NewCatalog()

	if _, err := c.Resolve("totally-made-up"); err == nil {
		t.Error("want error for unknown voice")
	}

	// Catalog IDs themselves are case-sensitive.
	if _, err := c.Resolve("AF_HEART"); err == nil {
		t.Error("want error for wrong-case catalog id")
	}

	// A Kokoro speaker the catalog does not ship must not resolve
	// either, even though the name looks plausible.
	if _, err := c.Resolve("af_bella"); err == nil {
		t.Error("want error for speaker absent from the catalog")
	}
}

func TestCatalog_AliasToAbsentTargetFailsResolution(t *testing.T) {
	// "ballad" maps to am_michael, which the shipped catalog does not
	// carry; resolution must fail rather than accept a voice that has
	// no style vector.
	c := tts.NewCatalog()

	if _, err := c.Resolve("ballad"); err == nil {
		t.Error("want error for alias whose target is absent")
	}
}

func TestCatalog_ListWithAliasesDeduplicates(t *testing.T) {
	c := tts.NewCatalogWith([]tts.Voice{
		{ID: "af_alloy", Name: "Alloy"},
		{ID: "alloy", Name: "already present"},
	})

	voices := c.ListWithAliases()

	count := 0
	for _, v := range voices {
		if v.ID == "alloy" {
			count++
		}
	}

	if count != 1 {
		t.Errorf("alias %q appears %d times; want 1", "alloy", count)
	}
}

func TestCatalog_ListCopiesTheSlice(t *testing.T) {
	c := tts.NewCatalogWith([]tts.Voice{{ID: "v1", Name: "one"}})

	got := c.List()
	got[0].ID = "mutated"

	if c.List()[0].ID != "v1" {
		t.Error("List must return a copy")
	}
}
