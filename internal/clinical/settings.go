package clinical

import (
	"fmt"
)

type Tone string

const (
	ToneFormal          Tone = "formal"
	ToneFriendly        Tone = "friendly"
	ToneConciseClinical Tone = "concise-clinical"
)

type Verbosity string

const (
	VerbosityBrief    Verbosity = "brief"
	VerbosityStandard Verbosity = "standard"
	VerbosityDetailed Verbosity = "detailed"
)

// Settings personalises generated text. It has no structural effect.
type Settings struct {
	Tone      Tone      `json:"tone"`
	Verbosity Verbosity `json:"verbosity"`
}

func DefaultSettings() Settings {
	return Settings{Tone: ToneFormal, Verbosity: VerbosityStandard}
}

// Normalize replaces unknown values with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	switch s.Tone {
	case ToneFormal, ToneFriendly, ToneConciseClinical:
	default:
		s.Tone = d.Tone
	}
	switch s.Verbosity {
	case VerbosityBrief, VerbosityStandard, VerbosityDetailed:
	default:
		s.Verbosity = d.Verbosity
	}
	return s
}

// Validate rejects unknown tone or verbosity values.
func (s Settings) Validate() error {
	if s.Normalize() != s {
		return fmt.Errorf("clinical: unsupported settings tone=%q verbosity=%q", s.Tone, s.Verbosity)
	}
	return nil
}

// Instruction is the personalization line appended to prompts.
func (s Settings) Instruction() string {
	s = s.Normalize()
	var tone string
	switch s.Tone {
	case ToneFriendly:
		tone = "Use a warm, approachable tone."
	case ToneConciseClinical:
		tone = "Use terse clinical language and standard abbreviations."
	default:
		tone = "Use a formal, professional tone."
	}
	var length string
	switch s.Verbosity {
	case VerbosityBrief:
		length = "Keep the answer brief."
	case VerbosityDetailed:
		length = "Be thorough and include supporting detail."
	default:
		length = "Use a standard level of detail."
	}
	return tone + " " + length
}
