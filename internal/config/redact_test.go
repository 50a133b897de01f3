package config

import "testing"

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Deepgram.APIKey = "dg-secret"
	cfg.Paraphrase.APIKey = "sk-secret"
	cfg.TTS.Password = "hunter2"
	cfg.API.Token = ""

	redacted := cfg.Redacted()
	if redacted.Deepgram.APIKey != redactedValue || redacted.Paraphrase.APIKey != redactedValue || redacted.TTS.Password != redactedValue {
		t.Fatalf("secrets not masked: %+v", redacted)
	}
	if redacted.API.Token != "" {
		t.Fatalf("empty token should stay empty, got %q", redacted.API.Token)
	}
	if cfg.Deepgram.APIKey != "dg-secret" {
		t.Fatal("original config was modified")
	}
}
