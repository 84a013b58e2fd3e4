package emotion

import (
	"sort"
	"strings"

	"github.com/zhouzirui/lumi/backend/internal/analysis/text"
)

// Score pairs a label with its probability-like weight in [0, 1].
type Score struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// neutralWeight is the baseline every utterance carries, so text without any
// cue resolves to neutral and weak cues do not reach 1.0.
const neutralWeight = 1.0

var keywordBuckets = map[Label][]string{
	Admiration:     {"amazing", "impressive", "admire", "incredible", "brilliant", "wonderful", "awesome", "respect"},
	Amusement:      {"haha", "hahaha", "lol", "lmao", "funny", "hilarious", "joke", "laughing"},
	Anger:          {"angry", "furious", "rage", "mad", "pissed", "hate", "livid", "outraged"},
	Annoyance:      {"annoyed", "annoying", "irritated", "irritating", "frustrated", "frustrating", "ugh", "fed up"},
	Approval:       {"agree", "approve", "makes sense", "sounds good", "fair enough", "right", "exactly"},
	Caring:         {"care about", "take care of", "look after", "worried about you", "hope you are", "support you"},
	Confusion:      {"confused", "confusing", "do not understand", "not sure", "unsure", "lost", "puzzled", "makes no sense"},
	Curiosity:      {"curious", "wonder", "wondering", "interested", "how does", "why does", "what if"},
	Desire:         {"wish", "want", "crave", "long for", "hope to", "would love"},
	Disappointment: {"disappointed", "disappointing", "let down", "letdown", "expected more", "failed"},
	Disapproval:    {"disagree", "wrong", "unacceptable", "should not", "not okay", "disapprove"},
	Disgust:        {"disgusting", "gross", "disgusted", "sick of", "revolting", "nasty"},
	Embarrassment:  {"embarrassed", "embarrassing", "ashamed", "awkward", "humiliated", "cringe"},
	Excitement:     {"excited", "exciting", "can not wait", "cannot wait", "thrilled", "pumped", "wow", "hyped"},
	Fear:           {"afraid", "scared", "terrified", "fear", "frightened", "horrified", "panic attack"},
	Gratitude:      {"thanks", "thank you", "grateful", "appreciate", "thankful", "thx"},
	Grief:          {"grief", "grieving", "passed away", "died", "lost my", "funeral", "mourning"},
	Joy:            {"happy", "glad", "joy", "delighted", "cheerful", "yay", "great day"},
	Love:           {"love", "adore", "in love", "sweetheart", "lovely"},
	Nervousness:    {"anxious", "anxiety", "nervous", "worried", "worry", "stressed", "stress", "uneasy", "tense", "overwhelmed"},
	Optimism:       {"hopeful", "optimistic", "looking forward", "things will get better", "it will be fine", "confident"},
	Pride:          {"proud", "accomplished", "achieved", "nailed it", "did it"},
	Realization:    {"realized", "realise", "realize", "just noticed", "it hit me", "now i see", "figured out"},
	Relief:         {"relieved", "relief", "phew", "finally over", "weight off"},
	Remorse:        {"sorry", "regret", "apologize", "my fault", "guilty", "should have"},
	Sadness:        {"sad", "unhappy", "depressed", "cry", "crying", "lonely", "heartbroken", "miserable", "down", "hurt"},
	Surprise:       {"surprised", "surprising", "shocked", "unexpected", "no way", "omg", "cannot believe"},
}

var punctuationBoost = map[Label]float64{
	Excitement: 1.5,
	Surprise:   1,
}

// Analyze scores text against the keyword lexicon and returns at most topK
// labels ordered by descending score. Text without cues yields neutral 1.0.
func Analyze(raw string, topK int) []Score {
	if topK < 1 {
		topK = 1
	}

	normalized := text.Normalize(raw)
	weights := map[Label]float64{Neutral: neutralWeight}
	if normalized == "" {
		return []Score{{Label: Neutral, Score: 1}}
	}

	padded := " " + normalized + " "
	for label, keywords := range keywordBuckets {
		for _, kw := range keywords {
			if strings.Contains(padded, " "+kw+" ") {
				weights[label] += 3
			}
		}
	}

	if exclamations := strings.Count(raw, "!"); exclamations > 0 {
		for label, boost := range punctuationBoost {
			if weights[label] > 0 {
				weights[label] += boost * float64(exclamations)
			}
		}
	}

	var total float64
	for _, w := range weights {
		total += w
	}

	scores := make([]Score, 0, len(weights))
	for label, w := range weights {
		scores = append(scores, Score{Label: label, Score: w / total})
	}
	SortScores(scores)

	if len(scores) > topK {
		scores = scores[:topK]
	}
	return scores
}

// SortScores orders by descending score; ties fall back to vocabulary order
// so results are deterministic.
func SortScores(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return labelIndex[scores[i].Label] < labelIndex[scores[j].Label]
	})
}

// Dominant returns the highest scoring label, or neutral for an empty result.
func Dominant(scores []Score) Label {
	if len(scores) == 0 {
		return Neutral
	}
	return scores[0].Label
}
