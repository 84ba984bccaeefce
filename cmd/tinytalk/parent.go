package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tinytalk/internal/config"
	"github.com/verte-zerg/tinytalk/internal/gate"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/store"
	"github.com/verte-zerg/tinytalk/internal/tui"
)

var (
	parentPIN        string
	settingsSession  int
	settingsDaily    int
	settingsCooldown int
	settingsReminder int
	settingsMode     string
)

func addPINFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&parentPIN, "pin", "", "parent PIN")
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change screen-time limits and rating mode",
		Args:  cobra.NoArgs,
		RunE:  runSettingsCmd,
	}
	addPINFlag(cmd)
	cmd.Flags().IntVar(&settingsSession, "session-limit", 0, "minutes per session")
	cmd.Flags().IntVar(&settingsDaily, "daily-limit", 0, "minutes per day")
	cmd.Flags().IntVar(&settingsCooldown, "cooldown", 0, "minutes between sessions")
	cmd.Flags().IntVar(&settingsReminder, "reminder", 0, "seconds between spoken reminders")
	cmd.Flags().StringVar(&settingsMode, "rating-mode", "", "rating mode (easy, standard, strict)")
	return cmd
}

func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Lift the cooldown lock now",
		Args:  cobra.NoArgs,
		RunE:  runUnlockCmd,
	}
	addPINFlag(cmd)
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all local data",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	addPINFlag(cmd)
	return cmd
}

// checkPIN compares the --pin flag with the configured parent PIN.
func checkPIN() error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	want := tui.DefaultPIN
	if fileCfg.Parent.PIN != nil && *fileCfg.Parent.PIN != "" {
		want = *fileCfg.Parent.PIN
	}
	if parentPIN == "" {
		return fmt.Errorf("--pin is required")
	}
	if parentPIN != want {
		return fmt.Errorf("wrong PIN")
	}
	return nil
}

// openGate opens the store and a gate driven synchronously. The CLI never
// starts a session, so no timers are scheduled.
func openGate() (*store.Store, *gate.Gate, func(), error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	log, logCloser, err := openLog()
	if err != nil {
		log = zerolog.Nop()
	}
	cleanup := func() {
		closeQuietly(st, "db")
		closeQuietly(logCloser, "log")
	}
	sched := loop.NewDispatcher(func(fn func()) { fn() })
	return st, gate.New(st, sched, log.With().Str("component", "gate").Logger()), cleanup, nil
}

func runSettingsCmd(cmd *cobra.Command, _ []string) error {
	changing := false
	for _, name := range []string{"session-limit", "daily-limit", "cooldown", "reminder", "rating-mode"} {
		if cmd.Flags().Changed(name) {
			changing = true
		}
	}
	if changing {
		if err := checkPIN(); err != nil {
			return err
		}
	}

	st, g, cleanup, err := openGate()
	if err != nil {
		return err
	}
	defer cleanup()

	var patch model.SettingsPatch
	setIntPatch(cmd, "session-limit", settingsSession, &patch.SessionLimitMinutes)
	setIntPatch(cmd, "daily-limit", settingsDaily, &patch.DailyLimitMinutes)
	setIntPatch(cmd, "cooldown", settingsCooldown, &patch.CooldownMinutes)
	setIntPatch(cmd, "reminder", settingsReminder, &patch.ReminderIntervalSeconds)
	if !patch.Empty() {
		if _, err := g.UpdateSettings(patch); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
	}
	if cmd.Flags().Changed("rating-mode") {
		mode, err := model.ParseRatingMode(settingsMode)
		if err != nil {
			return err
		}
		if err := st.SaveRatingMode(mode); err != nil {
			return fmt.Errorf("failed to save rating mode: %w", err)
		}
	}

	s := g.Settings()
	mode, err := st.RatingMode()
	if err != nil {
		mode = model.DefaultRatingMode
	}
	out := cmd.OutOrStdout()
	lines := []string{
		fmt.Sprintf("session-limit  %d min", s.SessionLimitMinutes),
		fmt.Sprintf("daily-limit    %d min", s.DailyLimitMinutes),
		fmt.Sprintf("cooldown       %d min", s.CooldownMinutes),
		fmt.Sprintf("reminder       %d s", s.ReminderIntervalSeconds),
		fmt.Sprintf("rating-mode    %s", mode),
	}
	state := g.State()
	lines = append(lines, fmt.Sprintf("today          %d min used", state.TodayUsedSeconds/60))
	if state.Locked {
		lines = append(lines, fmt.Sprintf("locked         %s", state.Reason))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func setIntPatch(cmd *cobra.Command, name string, value int, target **int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	v := value
	*target = &v
}

func runUnlockCmd(_ *cobra.Command, _ []string) error {
	if err := checkPIN(); err != nil {
		return err
	}
	_, g, cleanup, err := openGate()
	if err != nil {
		return err
	}
	defer cleanup()
	g.ParentUnlock()
	logErrln("Unlocked: practice is available again.")
	return nil
}

func runResetCmd(_ *cobra.Command, _ []string) error {
	if err := checkPIN(); err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeQuietly(st, "db")
	if err := st.Reset(); err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	logErrln("All local data cleared.")
	return nil
}
