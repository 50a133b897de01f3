package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/fileutil"
	"lectern/internal/queue"
)

type artifactKind int

const (
	artifactTranscript artifactKind = iota
	artifactParaphrase
	artifactAudio
	artifactBundle
)

// artifact is one file the stage writes into the output directory.
type artifact struct {
	kind     artifactKind
	label    string
	source   string
	fileName func(stem string) string
	write    func(target string) error
}

func (o *Organizer) planArtifacts(item *queue.Item) []artifact {
	var plan []artifact
	publish := o.cfg.Publish
	if transcript := strings.TrimSpace(item.TranscriptPath); publish.WriteTranscript && transcript != "" {
		plan = append(plan, copyArtifact(artifactTranscript, "transcript", transcript, func(stem string) string {
			return stem + "_transcript.txt"
		}))
	}
	if paraphrase := strings.TrimSpace(item.ParaphrasePath); publish.WriteParaphrase && paraphrase != "" {
		plan = append(plan, copyArtifact(artifactParaphrase, "paraphrase", paraphrase, func(stem string) string {
			return stem + "_paraphrased.txt"
		}))
	}
	if audio := strings.TrimSpace(item.AudioPath); audio != "" {
		ext := filepath.Ext(audio)
		plan = append(plan, copyArtifact(artifactAudio, "audio", audio, func(stem string) string {
			return stem + ext
		}))
		if publish.BundleAudio {
			plan = append(plan, artifact{
				kind:     artifactBundle,
				label:    "audio bundle",
				source:   audio,
				fileName: func(stem string) string { return stem + "_audio.zip" },
				write: func(target string) error {
					return writeBundle(target, audio, filepath.Base(strings.TrimSuffix(target, "_audio.zip"))+ext)
				},
			})
		}
	}
	return plan
}

func copyArtifact(kind artifactKind, label, source string, name func(string) string) artifact {
	return artifact{
		kind:     kind,
		label:    label,
		source:   source,
		fileName: name,
		write: func(target string) error {
			return fileutil.CopyFileVerified(source, target)
		},
	}
}

// resolveStem returns stem when none of the planned targets exist (or
// overwriting is allowed), otherwise the first free "stem-N".
func (o *Organizer) resolveStem(dir, stem string, plan []artifact) (string, error) {
	const maxAttempts = 10000
	if o.cfg.Publish.OverwriteExisting {
		return stem, nil
	}
	candidate := stem
	for attempt := 2; attempt <= maxAttempts+1; attempt++ {
		taken, err := anyExists(dir, candidate, plan)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", stem, attempt)
	}
	return "", fmt.Errorf("exhausted output filename slots for %q in %s", stem, dir)
}

func anyExists(dir, stem string, plan []artifact) (bool, error) {
	for _, art := range plan {
		_, err := os.Stat(filepath.Join(dir, art.fileName(stem)))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}
