// Package emotion holds the closed affect vocabulary, the per-label reply
// instructions and a local keyword model that scores text against it.
package emotion

import "strings"

// Label 表示情绪分类器可以输出的情绪标签。
type Label string

const (
	Admiration     Label = "admiration"
	Amusement      Label = "amusement"
	Anger          Label = "anger"
	Annoyance      Label = "annoyance"
	Approval       Label = "approval"
	Caring         Label = "caring"
	Confusion      Label = "confusion"
	Curiosity      Label = "curiosity"
	Desire         Label = "desire"
	Disappointment Label = "disappointment"
	Disapproval    Label = "disapproval"
	Disgust        Label = "disgust"
	Embarrassment  Label = "embarrassment"
	Excitement     Label = "excitement"
	Fear           Label = "fear"
	Gratitude      Label = "gratitude"
	Grief          Label = "grief"
	Joy            Label = "joy"
	Love           Label = "love"
	Nervousness    Label = "nervousness"
	Optimism       Label = "optimism"
	Pride          Label = "pride"
	Realization    Label = "realization"
	Relief         Label = "relief"
	Remorse        Label = "remorse"
	Sadness        Label = "sadness"
	Surprise       Label = "surprise"
	Neutral        Label = "neutral"
)

// DefaultInstruction is used for labels outside the vocabulary.
const DefaultInstruction = "Respond naturally."

// All lists the vocabulary in its canonical order.
var All = []Label{
	Admiration, Amusement, Anger, Annoyance, Approval, Caring, Confusion,
	Curiosity, Desire, Disappointment, Disapproval, Disgust, Embarrassment,
	Excitement, Fear, Gratitude, Grief, Joy, Love, Nervousness, Optimism,
	Pride, Realization, Relief, Remorse, Sadness, Surprise, Neutral,
}

var labelIndex = func() map[Label]int {
	idx := make(map[Label]int, len(All))
	for i, l := range All {
		idx[l] = i
	}
	return idx
}()

var instructions = map[Label]string{
	Admiration:     "The user is expressing admiration. Respond with enthusiasm and engage positively.",
	Amusement:      "The user is amused. Keep the conversation light and playful.",
	Anger:          "The user is angry. Validate their feelings and help them process their emotions calmly.",
	Annoyance:      "The user is annoyed. Acknowledge their frustration and provide helpful suggestions.",
	Approval:       "The user is approving of something. Engage and continue the positive discussion.",
	Caring:         "The user is expressing care. Respond with warmth and kindness.",
	Confusion:      "The user is confused. Provide clear, step-by-step guidance to help them understand.",
	Curiosity:      "The user is curious. Encourage their exploration and provide insightful answers.",
	Desire:         "The user is expressing desire. Respond supportively and engage in discussion.",
	Disappointment: "The user is disappointed. Show empathy and offer encouragement.",
	Disapproval:    "The user disapproves of something. Respect their viewpoint and discuss constructively.",
	Disgust:        "The user is disgusted. Understand their perspective and respond appropriately.",
	Embarrassment:  "The user is embarrassed. Reassure them and make them feel at ease.",
	Excitement:     "The user is excited. Engage with enthusiasm and encourage their energy.",
	Fear:           "The user is afraid. Offer reassurance and support.",
	Gratitude:      "The user is expressing gratitude. Acknowledge their appreciation and respond warmly.",
	Grief:          "The user is grieving. Offer support, sympathy, and patience.",
	Joy:            "The user is joyful. Celebrate their happiness and encourage positivity.",
	Love:           "The user is expressing love. Respond warmly and supportively.",
	Nervousness:    "The user is nervous. Help them feel reassured and offer calming advice.",
	Optimism:       "The user is optimistic. Encourage their positivity and enthusiasm.",
	Pride:          "The user is proud. Celebrate their achievements with them.",
	Realization:    "The user has had a realization. Encourage their insights and discussion.",
	Relief:         "The user feels relieved. Acknowledge their feelings and continue the conversation naturally.",
	Remorse:        "The user feels remorse. Offer support and encourage self-forgiveness.",
	Sadness:        "The user is sad. Respond with empathy and emotional support.",
	Surprise:       "The user is surprised. Engage with curiosity and discuss the surprise.",
	Neutral:        "The user is neutral. Respond naturally based on the conversation flow.",
}

// Instruction returns the generation instruction for label.
func Instruction(label Label) string {
	if instr, ok := instructions[label]; ok {
		return instr
	}
	return DefaultInstruction
}

// Parse maps free-form classifier output onto the vocabulary.
func Parse(raw string) (Label, bool) {
	label := Label(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := labelIndex[label]
	return label, ok
}
