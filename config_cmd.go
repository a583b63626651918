package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# synthesis engine: fish-local, fish-cloud, gtts, piper or openai
engine: "fish-cloud"
# engine used after fallback_after consecutive failures (empty disables)
fallback_engine: ""
fallback_after: 3
# per-request synthesis timeout
timeout: "30s"

# HTTP server
host: "0.0.0.0"
port: 8000

log:
  # debug, info, warn or error
  level: "info"
  # text or json
  format: "text"
  # also append to this file; "default" uses the user cache directory
  file: ""

cache:
  # defaults to <user cache dir>/holly-voice/<engine>
  dir: ""
  # in-memory hot tier in MB (0 disables)
  memory_size: 64
  # synthesize the common phrases when the server starts
  warm_on_start: false

fish:
  local:
    # Fish-Speech API server
    url: "http://127.0.0.1:8080"
    # where a downloaded checkpoint is kept (LLAMA_CHECKPOINT overrides)
    checkpoint_dir: "checkpoints/fish-speech-1.5"
    # the first *.wav here conditions the voice
    reference_dir: "voice_references"
    auto_download: true
  cloud:
    # FISH_AUDIO_API_KEY and HOLLY_VOICE_ID are read from the environment
    url: "https://api.fish.audio/v1/tts"

gtts:
  language: "en"
  slow: false
  requests_per_minute: 50

piper:
  binary: "piper"
  model: "en_US-amy-medium"
  # defaults to <user data dir>/holly-voice/piper
  model_dir: ""
  model_url: "https://github.com/rhasspy/piper/releases/download/v1.2.0"
  length_scale: 1.0

openai:
  # OPENAI_API_KEY is read from the environment; a base_url without a key
  # works for local OpenAI compatible servers
  base_url: ""
  model: "tts-1"
  voice: "nova"
  speed: 1.0
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the holly-voice config file",
	Long:    paragraph(fmt.Sprintf("\n%s the holly-voice config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("holly-voice config\nholly-voice config --config path/to/config.yml"),
	Args:    cobra.NoArgs,

	// an invalid config must still be editable
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("holly-voice", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
