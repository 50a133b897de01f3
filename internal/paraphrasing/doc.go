// Package paraphrasing adapts the paraphraser service to the workflow
// manager. It reads transcript.txt, rewrites it in the requested style, and
// writes paraphrase.txt next to it. Jobs with paraphrasing disabled pass
// through untouched.
package paraphrasing
