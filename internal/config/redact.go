package config

import "maps"

const redactedValue = "********"

// Redacted returns a copy of c with credentials masked, suitable for
// printing. Empty secrets stay empty so missing values remain visible.
func (c *Config) Redacted() Config {
	out := *c
	out.Logging.StageOverrides = maps.Clone(c.Logging.StageOverrides)
	mask := func(value *string) {
		if *value != "" {
			*value = redactedValue
		}
	}
	mask(&out.Deepgram.APIKey)
	mask(&out.Paraphrase.APIKey)
	mask(&out.TTS.Password)
	mask(&out.API.Token)
	return out
}
