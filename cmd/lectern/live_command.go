package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/daemonrun"
	"lectern/internal/services/deepgram"
)

// 100 ms of 16 kHz mono s16le audio.
const liveBlockSize = 3200

func newLiveCommand(ctx *commandContext) *cobra.Command {
	var (
		lang      string
		model     string
		fromStdin bool
		device    string
		duration  time.Duration
		output    string
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Transcribe live microphone audio (or raw PCM from stdin)",
		Long: "Streams 16 kHz mono 16-bit PCM to Deepgram and prints finished utterances.\n" +
			"Audio comes from the default PulseAudio source through ffmpeg, or from stdin with --stdin.\n" +
			"Send SIGUSR1 to pause or resume; Ctrl-C ends the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(false, false); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}

			opts := liveOptions(cfg, model, lang)
			session, err := daemonrun.NewDeepgramClient(cfg).Dial(runCtx, opts)
			if err != nil {
				return err
			}

			source, closeSource, err := liveAudioSource(cmd, cfg, fromStdin, device)
			if err != nil {
				_, _ = session.Stop(context.Background())
				return err
			}
			defer closeSource()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				printLiveUpdates(cmd, session.Updates())
			}()

			toggle := make(chan os.Signal, 1)
			signal.Notify(toggle, syscall.SIGUSR1)
			defer signal.Stop(toggle)
			go func() {
				for range toggle {
					if session.Paused() {
						session.Resume()
						fmt.Fprintln(cmd.ErrOrStderr(), "\n[resumed]")
					} else {
						session.Pause()
						fmt.Fprintln(cmd.ErrOrStderr(), "\n[paused]")
					}
				}
			}()

			streamErr := pumpAudio(runCtx, source, session)
			transcript, stopErr := session.Stop(context.Background())
			wg.Wait()

			if streamErr != nil && !errors.Is(streamErr, io.EOF) && runCtx.Err() == nil {
				return streamErr
			}
			if stopErr != nil {
				return stopErr
			}
			if strings.TrimSpace(output) != "" && strings.TrimSpace(transcript) != "" {
				return writeTextOutput(cmd, output, transcript)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "language", "", "Spoken language code (cs, en)")
	cmd.Flags().StringVar(&model, "model", "", "Deepgram model")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read raw 16 kHz mono s16le PCM from stdin")
	cmd.Flags().StringVar(&device, "device", "", "PulseAudio source for microphone capture")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop automatically after this long")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the final transcript to this file")
	return cmd
}

func liveOptions(cfg *config.Config, model, lang string) deepgram.LiveOptions {
	opts := deepgram.DefaultLiveOptions()
	opts.Model = firstNonEmpty(model, cfg.Deepgram.Model, opts.Model)
	opts.Language = firstNonEmpty(lang, cfg.Deepgram.Language, opts.Language)
	opts.SmartFormat = cfg.Deepgram.SmartFormat
	if cfg.Deepgram.LiveEndpointingMS > 0 {
		opts.EndpointingMS = cfg.Deepgram.LiveEndpointingMS
	}
	if cfg.Deepgram.LiveUtteranceEndMS > 0 {
		opts.UtteranceEndMS = cfg.Deepgram.LiveUtteranceEndMS
	}
	return opts
}

// liveAudioSource returns stdin or the stdout of an ffmpeg microphone
// capture. ffmpeg runs in its own process group so Ctrl-C reaches only us.
func liveAudioSource(cmd *cobra.Command, cfg *config.Config, fromStdin bool, device string) (io.Reader, func(), error) {
	if fromStdin {
		return cmd.InOrStdin(), func() {}, nil
	}
	device = firstNonEmpty(device, cfg.Recording.AudioDevice, "default")
	capture := exec.Command(cfg.FFmpegBinary(),
		"-hide_banner", "-loglevel", "error",
		"-f", "pulse", "-i", device,
		"-ac", "1", "-ar", "16000", "-f", "s16le", "-")
	capture.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := capture.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := capture.Start(); err != nil {
		return nil, nil, fmt.Errorf("start microphone capture: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s (Ctrl-C to stop)\n", device)
	return stdout, func() {
		_ = capture.Process.Kill()
		_ = capture.Wait()
	}, nil
}

// pumpAudio copies PCM blocks into the session until the source ends or ctx
// is done.
func pumpAudio(ctx context.Context, source io.Reader, session *deepgram.LiveSession) error {
	errc := make(chan error, 1)
	go func() {
		buf := make([]byte, liveBlockSize)
		for {
			n, err := source.Read(buf)
			if n > 0 {
				if sendErr := session.Send(append([]byte(nil), buf[:n]...)); sendErr != nil {
					errc <- sendErr
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func printLiveUpdates(cmd *cobra.Command, updates <-chan deepgram.Update) {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	interactive := shouldColorize(stderr)
	for update := range updates {
		if update.Final {
			if interactive {
				fmt.Fprint(stderr, "\r\x1b[K")
			}
			fmt.Fprintln(stdout, update.Utterance)
			continue
		}
		if interactive && update.Interim != "" {
			fmt.Fprintf(stderr, "\r\x1b[K%s", truncate(update.Interim, 100))
		}
	}
}
