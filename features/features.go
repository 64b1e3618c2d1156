// Package features turns POS-tagged transcript tokens into per-token feature
// dicts for the distribution source models.
package features

import (
	"errors"
	"fmt"
	"strings"

	"github.com/happyhackingspace/disfl/internal/textutil"
)

// ErrBadToken is returned by ParseTokens for a token without a POS tag.
var ErrBadToken = errors.New("features: token is not word/POS")

// Token is one transcript word with its part-of-speech tag.
type Token struct {
	Word string `json:"word"`
	POS  string `json:"pos"`
}

func (t Token) String() string {
	return t.Word + "/" + t.POS
}

// Slash-unit markers carried by POS-tagged transcripts; they are not words.
var ignoredTokens = map[string]bool{
	"E_S": true,
	"N_S": true,
}

// ParseTokens splits a line of "word/POS" tokens.
func ParseTokens(line string) ([]Token, error) {
	fields := strings.Fields(line)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if ignoredTokens[f] {
			continue
		}
		word, pos, ok := textutil.SplitTagged(f)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadToken, f)
		}
		tokens = append(tokens, Token{Word: word, POS: pos})
	}
	return tokens, nil
}

// Sentence returns the feature dict of every token.
//
// Each position gets a bias, its own token and POS, the next token and POS,
// the bigrams to the left and right and the trigrams ending and starting at
// the position. Token text is lowercased; POS tags are kept as-is.
func Sentence(tokens []Token) []map[string]any {
	words := make([]string, len(tokens))
	tags := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = textutil.Lower(t.Word)
		tags[i] = t.POS
	}

	out := make([]map[string]any, len(tokens))
	for i := range tokens {
		out[i] = tokenFeatures(words, tags, i)
	}
	return out
}

func tokenFeatures(words, tags []string, i int) map[string]any {
	n := len(words)
	feat := map[string]any{
		"bias":  1.0,
		"token": words[i],
		"pos":   tags[i],
	}
	if i >= 2 {
		feat["token_trigram-2"] = textutil.Window(words, i-2, i)
		feat["pos_trigram-2"] = textutil.Window(tags, i-2, i)
	}
	if i >= 1 {
		feat["token_bigram-1"] = textutil.Window(words, i-1, i)
		feat["pos_bigram-1"] = textutil.Window(tags, i-1, i)
	}
	if i+1 < n {
		feat["token+1"] = words[i+1]
		feat["pos+1"] = tags[i+1]
		feat["token_bigram+1"] = textutil.Window(words, i, i+1)
		feat["pos_bigram+1"] = textutil.Window(tags, i, i+1)
	}
	if i+2 < n {
		feat["token_trigram+2"] = textutil.Window(words, i, i+2)
		feat["pos_trigram+2"] = textutil.Window(tags, i, i+2)
	}
	return feat
}
