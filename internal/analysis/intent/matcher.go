// Package intent detects the small-talk categories that are answered locally
// without calling the emotion classifier or a language model.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zhouzirui/lumi/backend/internal/analysis/text"
)

// Category is the outcome of keyword matching on normalized text.
type Category string

const (
	None                 Category = "none"
	Identity             Category = "identity"
	Greeting             Category = "greeting"
	Farewell             Category = "farewell"
	PositiveMood         Category = "positive-mood"
	FeelingReciprocation Category = "feeling-reciprocation"
	CasualDeflection     Category = "casual-deflection"
)

var greetingKeywords = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"what's up", "howdy", "hiya", "yo", "greetings", "sup", "morning",
	"evening", "good day", "how do you do", "how are you", "how are you doing",
	"how's everything", "how's it going", "how have you been", "what's new",
}

var farewellKeywords = []string{
	"bye", "goodbye", "see you", "take care", "later", "farewell",
	"see you soon", "talk to you later", "peace", "so long",
}

var reciprocationKeywords = []string{
	"i'm good and you", "i'm fine and you", "i'm okay and you", "i'm great and you",
	"i'm good how about you", "i'm fine how about you", "i'm good what about you",
	"i'm doing well and you", "good and you", "fine and you", "not bad and you",
	"good how about you", "and you", "how about you", "what about you",
}

var positiveMoodKeywords = []string{
	"i'm good", "i'm fine", "i'm great", "i'm okay", "i'm ok", "i'm doing well",
	"i'm doing good", "i'm happy", "i feel good", "i feel great", "good", "great",
	"fine", "not bad", "pretty good", "doing well", "all good",
}

var casualDeflectionKeywords = []string{
	"tell me", "your turn", "you tell me", "tell me something", "you first",
	"you go first", "nothing much", "not much", "idk", "i don't know",
}

var identityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bwho are you\b`),
	regexp.MustCompile(`\bwho is lumi\b`),
	regexp.MustCompile(`\bwhat is lumi\b`),
	regexp.MustCompile(`\btell me about lumi\b`),
}

var (
	greetingPattern = wordPattern(greetingKeywords)
	farewellPattern = wordPattern(farewellKeywords)

	greetingSet      = keywordSet(greetingKeywords)
	farewellSet      = keywordSet(farewellKeywords)
	reciprocationSet = keywordSet(reciprocationKeywords)
	positiveMoodSet  = keywordSet(positiveMoodKeywords)
	deflectionSet    = keywordSet(casualDeflectionKeywords)
)

// strictOrder fixes the precedence used by ClassifySentence.
var strictOrder = []struct {
	category Category
	set      map[string]struct{}
}{
	{Greeting, greetingSet},
	{FeelingReciprocation, reciprocationSet},
	{PositiveMood, positiveMoodSet},
	{CasualDeflection, deflectionSet},
	{Farewell, farewellSet},
}

// Classify matches a whole normalized utterance. Identity patterns win over
// greetings, greetings over farewells; keywords match on word boundaries
// anywhere in the text.
func Classify(normalized string) Category {
	normalized = text.Normalize(normalized)
	if normalized == "" {
		return None
	}

	for _, pattern := range identityPatterns {
		if pattern.MatchString(normalized) {
			return Identity
		}
	}
	if greetingPattern.MatchString(normalized) {
		return Greeting
	}
	if farewellPattern.MatchString(normalized) {
		return Farewell
	}
	return None
}

// ClassifySentence is the stricter per-sentence matcher: the whole sentence
// must equal a keyword. Precedence is greeting, feeling-reciprocation,
// positive-mood, casual-deflection, farewell.
func ClassifySentence(normalized string) Category {
	normalized = text.Normalize(normalized)
	if normalized == "" {
		return None
	}

	for _, entry := range strictOrder {
		if _, ok := entry.set[normalized]; ok {
			return entry.category
		}
	}
	return None
}

// IsSmallTalk reports whether the category is one of the optional
// conversational categories produced only by ClassifySentence.
func (c Category) IsSmallTalk() bool {
	switch c {
	case PositiveMood, FeelingReciprocation, CasualDeflection:
		return true
	default:
		return false
	}
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if normalized := text.Normalize(kw); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// wordPattern compiles the keywords into one alternation, longest first so
// multi-word phrases are preferred over their prefixes.
func wordPattern(keywords []string) *regexp.Regexp {
	normalized := make([]string, 0, len(keywords))
	for kw := range keywordSet(keywords) {
		normalized = append(normalized, regexp.QuoteMeta(kw))
	}
	sort.Slice(normalized, func(i, j int) bool {
		if len(normalized[i]) != len(normalized[j]) {
			return len(normalized[i]) > len(normalized[j])
		}
		return normalized[i] < normalized[j]
	})
	return regexp.MustCompile(`\b(?:` + strings.Join(normalized, "|") + `)\b`)
}
