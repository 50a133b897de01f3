package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/recording"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		title    string
		author   string
		source   string
		quality  string
		output   string
		duration time.Duration
		enqueue  bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a lecture with ffmpeg until Ctrl-C",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session := recording.Session{
				Title:       title,
				Author:      author,
				Source:      strings.ToLower(firstNonEmpty(source, cfg.Recording.Source, recording.SourceNone)),
				Quality:     strings.ToLower(firstNonEmpty(quality, cfg.Recording.Quality, "720p")),
				OutputDir:   firstNonEmpty(output, cfg.Paths.RecordingDir),
				VideoDevice: cfg.Recording.VideoDevice,
				AudioDevice: cfg.Recording.AudioDevice,
				Display:     cfg.Recording.Display,
			}

			recorder := recording.NewRecorder(cfg.FFmpegBinary(), ctx.foregroundLogger(cmd, cfg),
				recording.WithCommandFactory(isolatedCommand))
			path, err := recorder.Start(context.Background(), session)
			if err != nil {
				return err
			}
			stderr := cmd.ErrOrStderr()
			fmt.Fprintf(stderr, "Recording to %s (Ctrl-C to stop)\n", path)

			waitCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, duration)
				defer cancel()
			}
			<-waitCtx.Done()

			fmt.Fprintln(stderr, "Finishing recording...")
			result, err := recorder.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %.1f MB)\n", result.Path,
				result.Duration.Round(time.Second), float64(result.Size)/(1<<20))

			if !enqueue && !cfg.Recording.AutoEnqueue {
				return nil
			}
			item, existing, err := ctx.enqueue(cmd, ipc.AddFileRequest{Path: result.Path, Title: title})
			if err != nil {
				return fmt.Errorf("queue recording: %w", err)
			}
			if !existing {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued #%d %s\n", item.ID, api.DisplayTitle(item))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Lecture title (used for the file name and metadata)")
	cmd.Flags().StringVar(&author, "author", "", "Lecturer name written to the file metadata")
	cmd.Flags().StringVar(&source, "source", "", "Video source: none, webcam or screen")
	cmd.Flags().StringVar(&quality, "quality", "", "Video quality: 1080p, 720p or 480p")
	cmd.Flags().StringVarP(&output, "output-dir", "o", "", "Directory for the recording")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop automatically after this long")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Queue the finished recording for transcription")
	return cmd
}

// isolatedCommand keeps ffmpeg out of the terminal's process group so that
// Ctrl-C is handled here and ffmpeg is stopped with "q".
func isolatedCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}
