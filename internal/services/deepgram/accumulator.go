package deepgram

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Update is emitted for every non-empty live result.
type Update struct {
	// Interim holds a non-final hypothesis; it is replaced by the next update.
	Interim string
	// Final is set when an utterance has been committed to the transcript.
	Final          bool
	Utterance      string
	FullTranscript string
}

type liveMessage struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool `json:"is_final"`
	SpeechFinal bool `json:"speech_final"`
}

// Accumulator merges live results into utterances and a running transcript.
// Final segments are buffered until Deepgram signals the end of speech,
// either via speech_final on a result or a separate UtteranceEnd event.
type Accumulator struct {
	mu     sync.Mutex
	finals []string
	full   string
}

// Handle applies one websocket message. The boolean is false when the message
// produces no update (metadata, empty transcripts, UtteranceEnd with nothing
// pending).
func (a *Accumulator) Handle(data []byte) (Update, bool, error) {
	var msg liveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Update{}, false, fmt.Errorf("decode live message: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch msg.Type {
	case "UtteranceEnd":
		return a.commitLocked()
	case "", "Results":
	default:
		return Update{}, false, nil
	}

	if len(msg.Channel.Alternatives) == 0 {
		return Update{}, false, nil
	}
	sentence := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
	if sentence == "" {
		return Update{}, false, nil
	}
	if !msg.IsFinal {
		return Update{Interim: sentence}, true, nil
	}
	a.finals = append(a.finals, sentence)
	if msg.SpeechFinal {
		return a.commitLocked()
	}
	return Update{}, false, nil
}

func (a *Accumulator) commitLocked() (Update, bool, error) {
	if len(a.finals) == 0 {
		return Update{}, false, nil
	}
	utterance := strings.Join(a.finals, " ")
	a.finals = a.finals[:0]
	if a.full == "" {
		a.full = utterance
	} else {
		a.full += " " + utterance
	}
	return Update{Final: true, Utterance: utterance, FullTranscript: a.full}, true, nil
}

// Flush commits any buffered final segments, as when the stream closes
// before an end-of-speech signal.
func (a *Accumulator) Flush() (Update, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	update, ok, _ := a.commitLocked()
	return update, ok
}

// Transcript returns the committed transcript so far.
func (a *Accumulator) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.full
}

// Reset discards pending segments and the committed transcript.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finals = nil
	a.full = ""
}
