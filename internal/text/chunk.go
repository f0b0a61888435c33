package text

import "strings"

// Chunk splits text into synthesis units at sentence boundaries
// (., !, ? and newline). Consecutive sentences are grouped while the
// combined rune count stays within maxChars. A single sentence longer
// than maxChars is kept intact as its own chunk.
//
// Text with no terminators at all comes back as one chunk, so every
// non-blank input yields at least one unit to synthesize.
func Chunk(text string, maxChars int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	if maxChars <= 0 {
		return sentences
	}

	var chunks []string
	var current strings.Builder
	currentRunes := 0

	for _, s := range sentences {
		n := len([]rune(s))
		if current.Len() == 0 {
			current.WriteString(s)
			currentRunes = n
			continue
		}

		if currentRunes+1+n > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(s)
			currentRunes = n
		} else {
			current.WriteByte(' ')
			current.WriteString(s)
			currentRunes += 1 + n
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences scans for sentence terminators, keeping each
// terminator attached to its sentence. Blank segments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}

	if start < len(text) {
		s := strings.TrimSpace(text[start:])
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
