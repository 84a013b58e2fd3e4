// Package text prepares raw chat input for keyword matching and classification.
package text

import (
	"regexp"
	"strings"
)

type contraction struct {
	pattern     *regexp.Regexp
	replacement string
}

// Irregular forms come first so the generic suffix rules never see them.
var contractions = []contraction{
	{regexp.MustCompile(`(?i)\bwon't\b`), "will not"},
	{regexp.MustCompile(`(?i)\bcan't\b`), "cannot"},
	{regexp.MustCompile(`(?i)\bshan't\b`), "shall not"},
	{regexp.MustCompile(`(?i)\bain't\b`), "am not"},
	{regexp.MustCompile(`(?i)\blet's\b`), "let us"},
	{regexp.MustCompile(`(?i)\by'all\b`), "you all"},
	{regexp.MustCompile(`(?i)\b(it|that|what|there|here|who|where|how|he|she|everything|everyone)'s\b`), "$1 is"},
	{regexp.MustCompile(`(?i)n't\b`), " not"},
	{regexp.MustCompile(`(?i)'re\b`), " are"},
	{regexp.MustCompile(`(?i)'m\b`), " am"},
	{regexp.MustCompile(`(?i)'ll\b`), " will"},
	{regexp.MustCompile(`(?i)'ve\b`), " have"},
	{regexp.MustCompile(`(?i)'d\b`), " would"},
}

var (
	apostrophes     = strings.NewReplacer("’", "'", "‘", "'", "`", "'")
	nonWordOrSpace  = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	sentenceBreaker = regexp.MustCompile(`[.!?]+`)
)

// Normalize expands contractions, drops everything that is not a word or
// space character, lowercases and collapses whitespace.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	// Lowercasing before stripping keeps multi-rune case mappings (İ -> i̇) stable.
	lowered := strings.ToLower(ExpandContractions(raw))
	stripped := nonWordOrSpace.ReplaceAllString(lowered, "")
	return strings.Join(strings.Fields(stripped), " ")
}

// ExpandContractions rewrites common English contractions into their long form.
func ExpandContractions(raw string) string {
	out := apostrophes.Replace(raw)
	if !strings.Contains(out, "'") {
		return out
	}
	for _, c := range contractions {
		out = c.pattern.ReplaceAllString(out, c.replacement)
	}
	return out
}

// SplitSentences splits raw input on '.', '!' and '?' and drops empty fragments.
func SplitSentences(raw string) []string {
	parts := sentenceBreaker.Split(raw, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// WordCount reports the number of whitespace separated words in normalized text.
func WordCount(normalized string) int {
	return len(strings.Fields(normalized))
}
