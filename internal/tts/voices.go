package tts

import (
	"fmt"
	"sort"
)

const DefaultVoice = "pf_dora"

var (
	VoiceDora = VoiceProfile{
		ID:           "pf_dora",
		Language:     "pt-br",
		LangCode:     "p",
		Gender:       "female",
		Description:  "Brazilian Portuguese, female",
		DefaultSpeed: 1.0,
	}

	VoiceAlex = VoiceProfile{
		ID:           "pm_alex",
		Language:     "pt-br",
		LangCode:     "p",
		Gender:       "male",
		Description:  "Brazilian Portuguese, male",
		DefaultSpeed: 1.0,
	}

	VoiceSanta = VoiceProfile{
		ID:           "pm_santa",
		Language:     "pt-br",
		LangCode:     "p",
		Gender:       "male",
		Description:  "Brazilian Portuguese, male",
		DefaultSpeed: 1.0,
	}

	VoiceHeart = VoiceProfile{
		ID:           "af_heart",
		Language:     "en-us",
		LangCode:     "a",
		Gender:       "female",
		Description:  "American English, female",
		DefaultSpeed: 1.0,
	}

	VoiceEmma = VoiceProfile{
		ID:           "bf_emma",
		Language:     "en-gb",
		LangCode:     "b",
		Gender:       "female",
		Description:  "British English, female",
		DefaultSpeed: 1.0,
	}

	VoiceSpanishDora = VoiceProfile{
		ID:           "ef_dora",
		Language:     "es",
		LangCode:     "e",
		Gender:       "female",
		Description:  "Spanish, female",
		DefaultSpeed: 1.0,
	}
)

var voiceRegistry = map[string]VoiceProfile{
	VoiceDora.ID:        VoiceDora,
	VoiceAlex.ID:        VoiceAlex,
	VoiceSanta.ID:       VoiceSanta,
	VoiceHeart.ID:       VoiceHeart,
	VoiceEmma.ID:        VoiceEmma,
	VoiceSpanishDora.ID: VoiceSpanishDora,
}

// GetVoice looks a voice up by id.
func GetVoice(id string) (VoiceProfile, bool) {
	v, ok := voiceRegistry[id]
	return v, ok
}

// ResolveVoice returns the registered profile for id. Unregistered ids that
// still follow the Kokoro naming scheme are accepted with a derived profile,
// since the engine may ship voices this table does not list.
func ResolveVoice(id string) (VoiceProfile, error) {
	if v, ok := voiceRegistry[id]; ok {
		return v, nil
	}
	code := LangCodeOf(id)
	if code == "" {
		return VoiceProfile{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownVoice, id, ListVoices())
	}
	return VoiceProfile{
		ID:           id,
		LangCode:     code,
		Gender:       genderOf(id),
		DefaultSpeed: 1.0,
	}, nil
}

// ListVoices returns the registered voice ids, sorted.
func ListVoices() []string {
	ids := make([]string, 0, len(voiceRegistry))
	for id := range voiceRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindVoicesByLanguage returns every registered voice for a language tag.
func FindVoicesByLanguage(language string) []VoiceProfile {
	var voices []VoiceProfile
	for _, id := range ListVoices() {
		if v := voiceRegistry[id]; v.Language == language {
			voices = append(voices, v)
		}
	}
	return voices
}
