// Package recording captures lectures with ffmpeg.
//
// A Session describes what to capture (microphone only, webcam, or screen)
// and at which quality; Args turns it into an ffmpeg command line. Recorder
// runs the process and stops it gracefully by sending "q" on stdin so the
// MP4 is finalized.
package recording
