package persona

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPersona = errors.New("invalid persona")

type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML file. Pools left empty in the file are
// filled from the built-in persona so every reply category stays answerable.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("%w: no personas in %s", ErrInvalidPersona, path)
	}

	out := make([]Persona, 0, len(file.Personas))
	for i, p := range file.Personas {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidPersona, i)
		}
		out = append(out, withDefaults(p))
	}
	return out, nil
}

func withDefaults(p Persona) Persona {
	base := Lumi()
	if p.Name == "" {
		p.Name = base.Name
	}
	if p.OpeningLine == "" {
		p.OpeningLine = base.OpeningLine
	}
	if p.Preamble == "" {
		p.Preamble = base.Preamble
	}
	if p.Identity == "" {
		p.Identity = base.Identity
	}
	if p.HostedDefault == "" {
		p.HostedDefault = base.HostedDefault
	}
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = append([]string(nil), src...)
		}
	}
	fill(&p.Greetings, base.Greetings)
	fill(&p.Farewells, base.Farewells)
	fill(&p.PositiveMood, base.PositiveMood)
	fill(&p.Reciprocation, base.Reciprocation)
	fill(&p.CasualDeflection, base.CasualDeflection)
	fill(&p.ShortInput, base.ShortInput)
	fill(&p.Apologies, base.Apologies)
	return p
}
