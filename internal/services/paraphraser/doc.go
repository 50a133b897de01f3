// Package paraphraser rewrites transcripts through a chat completion model.
//
// Long input is split at sentence boundaries into chunks no larger than the
// configured maximum length; each chunk is paraphrased independently and the
// results are joined with a space. Styles and formality levels map to fixed
// prompt instructions.
package paraphraser
