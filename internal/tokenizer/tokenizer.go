// Package tokenizer turns input text into the token IDs the Kokoro
// graph consumes.
package tokenizer

// Tokenizer encodes text into model token IDs.
type Tokenizer interface {
	Encode(text string) ([]int64, error)
}
