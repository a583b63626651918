package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hollyai/holly-voice/internal/audio"
)

var (
	sayOutput  string
	sayPlay    bool
	sayVoice   string
	sayNoCache bool

	sayCmd = &cobra.Command{
		Use:   "say [TEXT|-]",
		Short: "Synthesize text without running the server",
		Long: paragraph(
			fmt.Sprintf("\n%s text with the configured engine. The WAV goes to --output, to stdout when it is not a terminal, or to the speakers with --play.", keyword("Speak")),
		),
		Example: paragraph("holly-voice say \"Hello Hollywood!\" --play\n" +
			"holly-voice say -o done.wav \"All done!\"\n" +
			"echo \"Working on that now...\" | holly-voice say - > working.wav"),
		Args: cobra.MaximumNArgs(1),
		RunE: runSay,
	}
)

func init() {
	sayCmd.Flags().StringVarP(&sayOutput, "output", "o", "", "write the WAV to this file")
	sayCmd.Flags().BoolVar(&sayPlay, "play", false, "play the audio")
	sayCmd.Flags().StringVar(&sayVoice, "voice", "holly", "voice name")
	sayCmd.Flags().BoolVar(&sayNoCache, "no-cache", false, "bypass the audio cache")
}

func sayText(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	if len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("missing text: pass it as an argument or on stdin")
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read from stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func runSay(cmd *cobra.Command, args []string) error {
	text, err := sayText(args)
	if err != nil {
		return err
	}
	toStdout := sayOutput == "" && !sayPlay
	if toStdout && term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("refusing to write audio to a terminal: use --output, --play or redirect stdout")
	}

	logger := log.Default()
	gen, handle, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = handle.Close() }()

	res, err := gen.Generate(cmd.Context(), text, sayVoice, !sayNoCache)
	if err != nil {
		return err
	}
	if res.Fallback {
		logger.Warn("The engine returned placeholder audio instead of speech")
	}

	switch {
	case sayOutput != "":
		if err := writeWAVFile(sayOutput, res.Audio); err != nil {
			return err
		}
		logger.Info("Wrote audio", "path", sayOutput, "seconds", res.Audio.Seconds(), "cached", res.Cached)
	case toStdout:
		data, err := audio.WAVBytes(res.Audio)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("unable to write to stdout: %w", err)
		}
	}

	if sayPlay {
		player, err := audio.NewPlayer(res.Audio.SampleRate)
		if err != nil {
			return fmt.Errorf("unable to open audio output: %w", err)
		}
		if err := player.Play(cmd.Context(), res.Audio); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
	}
	return nil
}

func writeWAVFile(path string, b *audio.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := audio.EncodeWAV(f, b); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	return f.Close()
}
