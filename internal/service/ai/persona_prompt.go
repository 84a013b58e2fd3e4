package ai

import (
	"strings"

	"github.com/zhouzirui/lumi/backend/internal/analysis/emotion"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
)

// DefaultPreamble opens every generation prompt unless a persona overrides it.
const DefaultPreamble = "You are an emotionally intelligent chatbot that provides warm and empathetic responses.\n" +
	"Always acknowledge the user's feelings and offer thoughtful, caring advice."

// PromptTemplate defines the fixed sections of a persona prompt.
type PromptTemplate struct {
	Preamble     string
	HistoryTitle string
	ReplyCue     string
}

// PersonaPromptManager manages prompt templates for different personas
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
	fallback  *PromptTemplate
}

// NewPersonaPromptManager creates a prompt manager seeded from personas.
func NewPersonaPromptManager(personas []persona.Persona) *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate, len(personas)),
		fallback:  &PromptTemplate{Preamble: DefaultPreamble, HistoryTitle: "Conversation History:", ReplyCue: "Chatbot:"},
	}
	for _, p := range personas {
		tmpl := *manager.fallback
		if strings.TrimSpace(p.Preamble) != "" {
			tmpl.Preamble = strings.TrimSpace(p.Preamble)
		}
		manager.templates[p.ID] = &tmpl
	}
	return manager
}

// Template returns the template for personaID, or the default one.
func (pm *PersonaPromptManager) Template(personaID string) *PromptTemplate {
	if tmpl, ok := pm.templates[personaID]; ok {
		return tmpl
	}
	return pm.fallback
}

// BuildPrompt assembles the generation prompt:
//
//	<preamble>
//
//	Emotion-Specific Instruction: <instruction>
//
//	Conversation History:
//	<rolling context lines>
//
//	Chatbot:
func (pm *PersonaPromptManager) BuildPrompt(personaID string, label emotion.Label, history []string) string {
	tmpl := pm.Template(personaID)

	var builder strings.Builder
	builder.WriteString(tmpl.Preamble)
	builder.WriteString("\n\nEmotion-Specific Instruction: ")
	builder.WriteString(emotion.Instruction(label))
	builder.WriteString("\n\n")
	builder.WriteString(tmpl.HistoryTitle)
	builder.WriteString("\n")
	builder.WriteString(strings.Join(history, "\n"))
	builder.WriteString("\n\n")
	builder.WriteString(tmpl.ReplyCue)
	return builder.String()
}
