package kokoro

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// StyleTable maps voice IDs to their style conditioning vectors.
// Loaded once at startup and read-only afterwards.
type StyleTable struct {
	byID map[string][]float32
}

// LoadStyleTable reads a voices JSON file: an object mapping voice ID
// to a flat float array (the style embedding for that speaker).
func LoadStyleTable(path string) (*StyleTable, error) {
	if path == "" {
		return nil, fmt.Errorf("kokoro: voices path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voices file: %w", err)
	}

	var raw map[string][]float32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode voices file %s: %w", path, err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("voices file %s contains no voices", path)
	}

	for id, vec := range raw {
		if id == "" {
			return nil, fmt.Errorf("voices file %s contains an empty voice id", path)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("voice %q has an empty style vector", id)
		}
	}

	return &StyleTable{byID: raw}, nil
}

// Style returns the conditioning vector for a voice ID.
func (t *StyleTable) Style(voiceID string) ([]float32, error) {
	vec, ok := t.byID[voiceID]
	if !ok {
		return nil, fmt.Errorf("kokoro: no style vector for voice %q", voiceID)
	}

	return vec, nil
}

// IDs returns the voice IDs present in the table, sorted.
func (t *StyleTable) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
