// Package deepgram talks to the Deepgram speech-to-text API.
//
// Client.TranscribeFile uploads a prerecorded file to /v1/listen and returns
// the first channel's best alternative together with utterance timings when
// diarization is enabled. Requests pass through an optional rate limiter so
// parallel chunk uploads stay under the account quota.
//
// Client.Dial opens a live websocket session for microphone streaming. Raw
// 16 kHz mono linear16 PCM goes in through LiveSession.Send; interim and final
// results come out of LiveSession.Updates. Accumulator holds the merge rules
// for final segments and is usable without a socket.
package deepgram
