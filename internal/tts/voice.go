package tts

import "strings"

// VoiceProfile describes a Kokoro voice.
type VoiceProfile struct {
	// ID as understood by the engine, e.g. "pf_dora"
	ID string

	Language string // "pt-br", "en-us", ...
	LangCode string // single letter pipeline code, e.g. "p"
	Gender   string

	Description string

	DefaultSpeed float64
}

// LangCodeOf returns the pipeline language code encoded in a Kokoro voice id.
// Kokoro ids start with the language letter followed by the gender letter.
func LangCodeOf(voiceID string) string {
	if len(voiceID) < 3 || voiceID[2] != '_' {
		return ""
	}
	return strings.ToLower(voiceID[:1])
}

func genderOf(voiceID string) string {
	if len(voiceID) < 2 {
		return ""
	}
	switch voiceID[1] {
	case 'f':
		return "female"
	case 'm':
		return "male"
	}
	return ""
}
