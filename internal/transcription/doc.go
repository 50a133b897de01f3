// Package transcription turns lecture recordings into transcript text.
//
// Small files go to Deepgram in one request. Recordings larger than the size
// threshold are probed for duration; long ones are cut into overlapping MP3
// spans with ffmpeg, transcribed concurrently, and stitched back together
// with textutil.SmartJoin so words repeated in the overlap appear once. When
// the probe fails, spans are cut one after another until ffmpeg runs out of
// audio.
//
// Stage adapts the service to the workflow manager: it moves queue items from
// pending to transcribed and writes transcript.txt into the item's staging
// directory.
package transcription
