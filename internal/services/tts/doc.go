// Package tts talks to the speech synthesis server and turns paraphrased
// lectures into audio.
//
// The server accepts a form POST with engine, format, and text fields and
// answers with the encoded audio. It is protected by HTTP Digest
// authentication, answered by github.com/icholy/digest. Service layers sentence
// chunking on top of Client and joins WAV chunks into a single file.
package tts
