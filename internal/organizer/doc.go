// Package organizer publishes finished lectures into the output library.
//
// It copies the transcript, the paraphrase and the synthesized audio out of
// the item's staging directory under a shared file stem, bundles the audio
// into a zip archive, and announces the result. Targets that already exist
// are kept unless overwrite_existing is set; the stage then picks a free
// numbered stem instead. Progress updates and error wrapping follow the same
// conventions as the other stages so the workflow manager can react
// uniformly.
package organizer
