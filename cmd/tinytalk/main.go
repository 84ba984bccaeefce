// Package main provides the CLI entrypoint for tinytalk.
package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/config"
	"github.com/verte-zerg/tinytalk/internal/content"
	"github.com/verte-zerg/tinytalk/internal/deck"
	"github.com/verte-zerg/tinytalk/internal/logging"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/speech"
	"github.com/verte-zerg/tinytalk/internal/store"
	"github.com/verte-zerg/tinytalk/internal/tui"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

const (
	defaultCards      = 0
	defaultWeakTop    = 8
	defaultWeakFactor = 2.0
	defaultWeakWindow = 20
	defaultEngine     = "auto"
)

var (
	appCards      int
	appWords      string
	appCategories []string
	appFocusWeak  bool
	appWeakTop    int
	appWeakFactor float64
	appWeakWindow int
	appEngine     string
	appVoice      string
	appRate       int
	appDevice     string
	appMute       bool

	logPath  string
	logLevel string
	dbPath   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tinytalk",
		Short:         "Speech practice for toddlers",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          screenRunner(tui.ScreenHome),
	}
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", "", "diagnostic log file (default: $XDG_DATA_HOME/tinytalk/tinytalk.log)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: $XDG_DATA_HOME/tinytalk/tinytalk.db)")
	addAppFlags(rootCmd)

	rootCmd.AddCommand(newScreenCmd("train", "Start a practice run", tui.ScreenTraining))
	rootCmd.AddCommand(newScreenCmd("stories", "Listen to stories", tui.ScreenStories))
	rootCmd.AddCommand(newScreenCmd("rhymes", "Listen to and follow nursery rhymes", tui.ScreenRhymes))
	rootCmd.AddCommand(newScreenCmd("rewards", "Show stars and badges", tui.ScreenRewards))
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newUnlockCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addAppFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&appCards, "cards", defaultCards, "cards per run (0 = whole word table)")
	cmd.Flags().StringVar(&appWords, "words", "", "custom word table (TOML)")
	cmd.Flags().StringSliceVar(&appCategories, "category", nil, "limit cards to categories (animal, food, transport, verb, social)")
	cmd.Flags().BoolVar(&appFocusWeak, "focus-weak", false, "bias cards toward words the child found hard")
	cmd.Flags().IntVar(&appWeakTop, "weak-top", defaultWeakTop, "number of weak words to focus on")
	cmd.Flags().Float64Var(&appWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak words")
	cmd.Flags().IntVar(&appWeakWindow, "weak-window", defaultWeakWindow, "number of recent runs to compute weak words")
	cmd.Flags().StringVar(&appEngine, "speech", defaultEngine, "speech engine (auto, espeak-ng, espeak, say, none)")
	cmd.Flags().StringVar(&appVoice, "voice", "", "speech engine voice")
	cmd.Flags().IntVar(&appRate, "rate", 0, "speech rate in words per minute (0 = engine default)")
	cmd.Flags().StringVar(&appDevice, "device", "", "capture device id or name")
	cmd.Flags().BoolVar(&appMute, "mute", false, "disable feedback tones")
}

func newScreenCmd(use, short string, screen tui.Screen) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  screenRunner(screen),
	}
	addAppFlags(cmd)
	return cmd
}

func screenRunner(screen tui.Screen) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, screen)
	}
}

func runApp(cmd *cobra.Command, screen tui.Screen) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "cards", &appCards, fileCfg.Training.Cards)
	applyStringConfig(cmd, "words", &appWords, fileCfg.Training.Words)
	applyStringsConfig(cmd, "category", &appCategories, fileCfg.Training.Categories)
	applyBoolConfig(cmd, "focus-weak", &appFocusWeak, fileCfg.Training.FocusWeak)
	applyIntConfig(cmd, "weak-top", &appWeakTop, fileCfg.Training.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &appWeakFactor, fileCfg.Training.WeakFactor)
	applyIntConfig(cmd, "weak-window", &appWeakWindow, fileCfg.Training.WeakWindow)
	applyStringConfig(cmd, "speech", &appEngine, fileCfg.Speech.Engine)
	applyStringConfig(cmd, "voice", &appVoice, fileCfg.Speech.Voice)
	applyIntConfig(cmd, "rate", &appRate, fileCfg.Speech.Rate)
	applyStringConfig(cmd, "device", &appDevice, fileCfg.Audio.Device)
	applyBoolConfig(cmd, "mute", &appMute, fileCfg.Audio.Mute)

	if err := validateAppFlags(); err != nil {
		return err
	}
	vadCfg, err := voiceConfig(fileCfg.Voice)
	if err != nil {
		return err
	}

	log, closeLog, err := openLog()
	if err != nil {
		return err
	}
	defer closeQuietly(closeLog, "log")

	lib, err := content.Load()
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	words, err := resolveWords(lib)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeQuietly(st, "db")

	speaker, serr := speech.Detect(speech.Options{Engine: appEngine, Voice: appVoice, Rate: appRate}, nil)
	speech.Log(log, speaker, serr)
	if serr != nil && appEngine != defaultEngine {
		logErrf("speech engine %q unavailable, continuing without speech\n", appEngine)
	}

	mic, closeAudio := openMicrophone(log)
	defer closeAudio()
	tones := openTones(log)
	if c, ok := tones.(interface{ Close() }); ok {
		defer c.Close()
	}

	pin := ""
	if fileCfg.Parent.PIN != nil {
		pin = *fileCfg.Parent.PIN
	}

	log.Info().Int("words", len(words)).Int("cards", appCards).Msg("tinytalk starting")
	return tui.Run(tui.Env{
		Repo:    st,
		Library: lib,
		Words:   words,
		Speaker: speaker,
		Input:   mic,
		Tones:   tones,
		VAD:     vadCfg,
		Deck: tui.DeckOptions{
			Cards:      appCards,
			FocusWeak:  appFocusWeak,
			WeakTop:    appWeakTop,
			WeakFactor: appWeakFactor,
			WeakWindow: appWeakWindow,
		},
		Dealer: deck.New(),
		PIN:    pin,
		Start:  screen,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:    log,
	})
}

func validateAppFlags() error {
	if appCards < 0 {
		return fmt.Errorf("--cards must be >= 0")
	}
	if appWeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if appWeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if appWeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if appRate < 0 {
		return fmt.Errorf("--rate must be >= 0")
	}
	return nil
}

// voiceConfig overlays the [voice] section on the detection defaults.
func voiceConfig(v config.VoiceConfig) (vad.Config, error) {
	cfg := vad.DefaultConfig()
	if v.MinDurationMs != nil {
		cfg.MinDuration = time.Duration(*v.MinDurationMs) * time.Millisecond
	}
	if v.VolumeThreshold != nil {
		cfg.VolumeThreshold = *v.VolumeThreshold
	}
	if v.MaxDurationMs != nil {
		cfg.MaxDuration = time.Duration(*v.MaxDurationMs) * time.Millisecond
	}
	if v.SilenceTimeoutMs != nil {
		cfg.SilenceTimeout = time.Duration(*v.SilenceTimeoutMs) * time.Millisecond
	}
	switch {
	case cfg.MinDuration <= 0:
		return cfg, fmt.Errorf("voice.min-duration-ms must be > 0")
	case cfg.VolumeThreshold <= 0 || cfg.VolumeThreshold >= 1:
		return cfg, fmt.Errorf("voice.volume-threshold must be between 0 and 1")
	case cfg.MaxDuration <= cfg.MinDuration:
		return cfg, fmt.Errorf("voice.max-duration-ms must exceed min-duration-ms")
	case cfg.SilenceTimeout <= 0:
		return cfg, fmt.Errorf("voice.silence-timeout-ms must be > 0")
	}
	return cfg, nil
}

// resolveWords picks the card table: an explicit --words file, then a
// words.toml next to the config, then the bundled table.
func resolveWords(lib content.Library) ([]model.Word, error) {
	words := lib.Words
	path := appWords
	if path == "" {
		if _, err := os.Stat(config.DefaultWordsPath()); err == nil {
			path = config.DefaultWordsPath()
		}
	}
	if path != "" {
		custom, err := content.LoadWords(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load word table %s: %w", path, err)
		}
		words = custom
	}
	words = content.FilterCategory(words, appCategories)
	if len(words) == 0 {
		return nil, fmt.Errorf("no words match --category %s", strings.Join(appCategories, ","))
	}
	return words, nil
}

func openLog() (zerolog.Logger, io.Closer, error) {
	path, err := logging.ResolvePath(logPath, config.DefaultLogPath())
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to resolve log path: %w", err)
	}
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return logging.Open(path, level)
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

// openMicrophone returns a capture source. Without an audio backend the
// source reports a denied permission on every attempt and the app runs on.
func openMicrophone(log zerolog.Logger) (audio.Source, func()) {
	ctx, err := audio.NewContext()
	if err != nil {
		log.Warn().Err(err).Msg("audio backend unavailable")
		logErrf("microphone unavailable: %v\n", err)
		return audio.NewMicrophone(nil, nil, log), func() {}
	}
	device, err := audio.FindDevice(ctx, appDevice)
	if err != nil {
		log.Warn().Err(err).Msg("capture device not found, using default")
		logErrf("%v; using the default device\n", err)
		device = nil
	}
	return audio.NewMicrophone(ctx, device, log.With().Str("component", "mic").Logger()), ctx.Close
}

func openTones(log zerolog.Logger) audio.Tones {
	if appMute {
		return audio.Mute{}
	}
	player, err := audio.NewPlayer(log.With().Str("component", "tones").Logger())
	if err != nil {
		log.Warn().Err(err).Msg("tone playback unavailable")
		return audio.Mute{}
	}
	return player
}

func closeQuietly(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logErrf("failed to close %s: %v\n", what, err)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	v := vad.DefaultConfig()
	return fmt.Sprintf(`# tinytalk configuration
# Uncomment a value to enable it. CLI flags override config values.

[training]
# cards = %d               # Cards per run (0 = whole word table)
# words = "words.toml"    # Custom word table
# categories = ["animal", "food"]
# focus-weak = false      # Bias cards toward hard words
# weak-top = %d            # Number of weak words to focus on
# weak-factor = %.1f      # Weight factor for weak words
# weak-window = %d        # Number of recent runs to compute weak words

[voice]
# min-duration-ms = %d
# volume-threshold = %.2f
# max-duration-ms = %d
# silence-timeout-ms = %d

[speech]
# engine = %q           # auto, espeak-ng, espeak, say or none
# voice = "cmn"
# rate = 0

[audio]
# device = ""             # Capture device id or name (see: tinytalk devices)
# mute = false            # Disable feedback tones

[parent]
# pin = %q
`,
		defaultCards,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		v.MinDuration.Milliseconds(),
		v.VolumeThreshold,
		v.MaxDuration.Milliseconds(),
		v.SilenceTimeout.Milliseconds(),
		defaultEngine,
		tui.DefaultPIN,
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringsConfig(cmd *cobra.Command, name string, target, value *[]string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), (*value)...)
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
