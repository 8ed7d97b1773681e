// Package prompt assembles the single instruction string sent upstream.
// Building is pure: no I/O, no failure modes. Unrecognized preference values
// are normalized to their defaults at parse time, so the lookup tables are
// closed over fixed variants.
package prompt

import (
	"fmt"
	"strings"

	"github.com/draftly-app/draftly/internal/config"
)

// Persona selects the structural template of the generated post.
type Persona int

const (
	PersonaStoryteller Persona = iota
	PersonaData
	PersonaAdvisor
)

func (p Persona) String() string {
	switch p {
	case PersonaData:
		return "data"
	case PersonaAdvisor:
		return "advisor"
	default:
		return "storyteller"
	}
}

// ParsePersona maps a request string to a persona, defaulting to storyteller.
func ParsePersona(s string) Persona {
	switch s {
	case "data":
		return PersonaData
	case "advisor":
		return PersonaAdvisor
	default:
		return PersonaStoryteller
	}
}

// Tone selects the stylistic directive layered onto any persona.
type Tone int

const (
	ToneProfessional Tone = iota
	ToneCasual
	ToneBold
	ToneHumble
)

func (t Tone) String() string {
	switch t {
	case ToneCasual:
		return "casual"
	case ToneBold:
		return "bold"
	case ToneHumble:
		return "humble"
	default:
		return "professional"
	}
}

// ParseTone maps a request string to a tone, defaulting to professional.
func ParseTone(s string) Tone {
	switch s {
	case "casual":
		return ToneCasual
	case "bold":
		return ToneBold
	case "humble":
		return ToneHumble
	default:
		return ToneProfessional
	}
}

// Length selects the target word count.
type Length int

const (
	LengthShort Length = iota
	LengthMedium
	LengthLong
)

// ParseLength maps a request string to a length, defaulting to medium.
func ParseLength(s string) Length {
	switch s {
	case "short":
		return LengthShort
	case "long":
		return LengthLong
	default:
		return LengthMedium
	}
}

// WordTarget returns the approximate word count requested of the model.
func (l Length) WordTarget() int {
	switch l {
	case LengthShort:
		return 100
	case LengthLong:
		return 300
	default:
		return 200
	}
}

// EmojiLevel selects the exact emoji count requested of the model.
type EmojiLevel int

const (
	EmojiNone EmojiLevel = iota
	EmojiLow
	EmojiMedium
	EmojiHigh
)

// ParseEmojiLevel maps a request string to a level, defaulting to medium.
func ParseEmojiLevel(s string) EmojiLevel {
	switch s {
	case "none":
		return EmojiNone
	case "low":
		return EmojiLow
	case "high":
		return EmojiHigh
	default:
		return EmojiMedium
	}
}

// Count returns the exact emoji count for the level.
func (e EmojiLevel) Count() int {
	switch e {
	case EmojiNone:
		return 0
	case EmojiLow:
		return 1
	case EmojiHigh:
		return 5
	default:
		return 3
	}
}

var defaultPersonas = map[Persona]string{
	PersonaStoryteller: `You are a storyteller. Structure the post as:
1. A compelling hook that grabs attention
2. A narrative that shares an experience or story
3. A clear takeaway or lesson learned`,

	PersonaData: `You are a data-driven thought leader. Structure the post as:
1. A surprising statistic or data point
2. The insight behind what this means
3. The implication for the reader`,

	PersonaAdvisor: `You are a practical advisor. Structure the post as:
1. A single, actionable piece of advice
2. Brief explanation (2-3 sentences)
3. Quick closing encouragement`,
}

var defaultTones = map[Tone]string{
	ToneProfessional: "Use professional, business-appropriate language",
	ToneCasual:       "Use conversational, friendly language",
	ToneBold:         "Use confident, assertive language",
	ToneHumble:       "Use modest, authentic language",
}

// Builder renders the upstream prompt. The overrides source is consulted on
// every build so a hot-reloaded overrides file takes effect without restart;
// a nil source means built-in templates only.
type Builder struct {
	overrides func() *config.Overrides
}

func NewBuilder(overrides func() *config.Overrides) *Builder {
	return &Builder{overrides: overrides}
}

func (b *Builder) personaTemplate(p Persona) string {
	if b.overrides != nil {
		if o := b.overrides(); o != nil {
			if tpl, ok := o.Personas[p.String()]; ok && tpl != "" {
				return tpl
			}
		}
	}
	return defaultPersonas[p]
}

func (b *Builder) toneDirective(t Tone) string {
	if b.overrides != nil {
		if o := b.overrides(); o != nil {
			if d, ok := o.Tones[t.String()]; ok && d != "" {
				return d
			}
		}
	}
	return defaultTones[t]
}

// Build assembles the instruction string for the sanitized content. Section
// ordering and wording are a stable contract consumed verbatim upstream.
func (b *Builder) Build(content string, persona Persona, tone Tone, length Length, emoji EmojiLevel) string {
	var sb strings.Builder
	sb.WriteString("You are a LinkedIn content creator.\n\n")
	sb.WriteString(b.personaTemplate(persona))
	sb.WriteString("\n\nTone: ")
	sb.WriteString(b.toneDirective(tone))
	sb.WriteString("\n\nRequirements:\n")
	fmt.Fprintf(&sb, "- Word count: Approximately %d words\n", length.WordTarget())
	fmt.Fprintf(&sb, "- Emojis: Use exactly %d relevant emojis\n", emoji.Count())
	sb.WriteString("- Format: Short paragraphs (2-3 sentences max), use line breaks\n")
	sb.WriteString("- Hashtags: Include 3-5 relevant hashtags at the end\n")
	sb.WriteString("- NO bullet points, write in flowing prose\n\n")
	sb.WriteString("User's raw thoughts/notes:\n")
	sb.WriteString(content)
	sb.WriteString("\n\nGenerate the LinkedIn post now:")
	return sb.String()
}
