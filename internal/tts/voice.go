package tts

import (
	"fmt"
	"sort"
	"strings"
)

// Voice describes one speaker in the catalog.
type Voice struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// openAIAliases maps OpenAI voice names onto Kokoro speaker IDs, so
// clients written against the OpenAI API work unchanged. Matching is
// case-insensitive.
var openAIAliases = map[string]string{
	"alloy":   "af_alloy",
	"echo":    "am_echo",
	"fable":   "bm_fable",
	"nova":    "af_nova",
	"onyx":    "am_onyx",
	"shimmer": "af_shimmer",
	"ash":     "am_adam",
	"ballad":  "am_michael",
	"verse":   "am_eric",
	"cedar":   "am_liam",
	"coral":   "af_nicole",
	"sage":    "af_sarah",
	"marin":   "af_river",
}

// kokoroVoices is the static speaker taxonomy shipped with the model.
// The two-letter prefix encodes language and gender.
var kokoroVoices = []Voice{
	{ID: "af_alloy", Name: "Alloy (Female, American)"},
	{ID: "af_heart", Name: "Heart (Female, American)"},
	{ID: "af_nova", Name: "Nova (Female, American)"},
	{ID: "af_river", Name: "River (Female, American)"},
	{ID: "af_shimmer", Name: "Shimmer (Female, American)"},
	{ID: "am_adam", Name: "Adam (Male, American)"},
	{ID: "am_echo", Name: "Echo (Male, American)"},
	{ID: "am_fenrir", Name: "Fenrir (Male, American)"},
	{ID: "am_onyx", Name: "Onyx (Male, American)"},
	{ID: "am_puck", Name: "Puck (Male, American)"},
	{ID: "am_santa", Name: "Santa (Male, American)"},
	{ID: "bf_alice", Name: "Alice (Female, British)"},
	{ID: "bf_emma", Name: "Emma (Female, British)"},
	{ID: "bf_lily", Name: "Lily (Female, British)"},
	{ID: "bm_daniel", Name: "Daniel (Male, British)"},
	{ID: "bm_fable", Name: "Fable (Male, British)"},
	{ID: "bm_george", Name: "George (Male, British)"},
	{ID: "bm_lewis", Name: "Lewis (Male, British)"},
	{ID: "jf_alpha", Name: "Alpha (Female, Japanese)"},
	{ID: "jf_gongitsune", Name: "Gongitsune (Female, Japanese)"},
	{ID: "jf_nezumi", Name: "Nezumi (Female, Japanese)"},
	{ID: "jf_tebukuro", Name: "Tebukuro (Female, Japanese)"},
	{ID: "jm_kumo", Name: "Kumo (Male, Japanese)"},
	{ID: "zf_xiaobei", Name: "Xiaobei (Female, Chinese)"},
	{ID: "zf_xiaoni", Name: "Xiaoni (Female, Chinese)"},
	{ID: "zf_xiaoxiao", Name: "Xiaoxiao (Female, Chinese)"},
	{ID: "zf_yunjian", Name: "Yunjian (Female, Chinese)"},
	{ID: "zf_yunxia", Name: "Yunxia (Female, Chinese)"},
	{ID: "zf_yunxi", Name: "Yunxi (Female, Chinese)"},
	{ID: "zm_yunjian", Name: "Yunjian (Male, Chinese)"},
	{ID: "ef_dora", Name: "Dora (Female, Spanish)"},
	{ID: "em_alex", Name: "Alex (Male, Spanish)"},
	{ID: "em_santa", Name: "Santa (Male, Spanish)"},
	{ID: "ff_siwis", Name: "Siwis (Female, French)"},
	{ID: "hf_alpha", Name: "Alpha (Female, Hindi)"},
	{ID: "hf_beta", Name: "Beta (Female, Hindi)"},
	{ID: "hm_omega", Name: "Omega (Male, Hindi)"},
	{ID: "hm_psi", Name: "Psi (Male, Hindi)"},
	{ID: "if_sara", Name: "Sara (Female, Italian)"},
	{ID: "im_nicola", Name: "Nicola (Male, Italian)"},
	{ID: "pf_dora", Name: "Dora (Female, Portuguese)"},
	{ID: "pm_alex", Name: "Alex (Male, Portuguese)"},
	{ID: "pm_santa", Name: "Santa (Male, Portuguese)"},
}

// Catalog is the process-wide voice set. Built once at startup,
// read-only afterwards.
type Catalog struct {
	voices []Voice
	byID   map[string]Voice
}

// NewCatalog builds the default Kokoro catalog.
func NewCatalog() *Catalog {
	return newCatalog(kokoroVoices)
}

// NewCatalogWith builds a catalog from an explicit voice list (tests,
// or deployments shipping a trimmed voice set).
func NewCatalogWith(voices []Voice) *Catalog {
	return newCatalog(voices)
}

func newCatalog(voices []Voice) *Catalog {
	c := &Catalog{
		voices: append([]Voice(nil), voices...),
		byID:   make(map[string]Voice, len(voices)),
	}

	for _, v := range voices {
		c.byID[v.ID] = v
	}

	return c
}

// Resolve maps a requested voice to a catalog ID. Exact IDs are
// accepted as-is; otherwise OpenAI aliases are resolved
// case-insensitively. The resolved ID must exist in the catalog.
func (c *Catalog) Resolve(voice string) (string, error) {
	resolved := voice
	if alias, ok := openAIAliases[strings.ToLower(voice)]; ok {
		resolved = alias
	}

	if _, ok := c.byID[resolved]; !ok {
		return "", fmt.Errorf("unknown voice %q", voice)
	}

	return resolved, nil
}

// List returns the catalog voices.
func (c *Catalog) List() []Voice {
	return append([]Voice(nil), c.voices...)
}

// ListWithAliases returns the catalog plus one entry per OpenAI alias
// whose target exists, skipping IDs already present.
func (c *Catalog) ListWithAliases() []Voice {
	out := c.List()

	seen := make(map[string]bool, len(out))
	for _, v := range out {
		seen[v.ID] = true
	}

	aliases := make([]string, 0, len(openAIAliases))
	for alias := range openAIAliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		target := openAIAliases[alias]
		if seen[alias] {
			continue
		}
		if _, ok := c.byID[target]; !ok {
			continue
		}

		seen[alias] = true
		out = append(out, Voice{
			ID:   alias,
			Name: fmt.Sprintf("%s (OpenAI alias for %s)", alias, target),
		})
	}

	return out
}
