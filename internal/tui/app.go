// Package tui provides the Bubble Tea interface: home menu, card training,
// lock screen, rewards, story and rhyme playback, and the parent area.
package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/content"
	"github.com/verte-zerg/tinytalk/internal/deck"
	"github.com/verte-zerg/tinytalk/internal/gate"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/playback"
	"github.com/verte-zerg/tinytalk/internal/rewards"
	"github.com/verte-zerg/tinytalk/internal/speech"
	statsPkg "github.com/verte-zerg/tinytalk/internal/stats"
	"github.com/verte-zerg/tinytalk/internal/training"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

// Screen identifies a top-level view.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenTraining
	ScreenLock
	ScreenRewards
	ScreenStories
	ScreenRhymes
	ScreenParent
)

// Repository is everything the app persists.
type Repository interface {
	gate.Repository
	rewards.Repository
	training.History
	RatingMode() (model.RatingMode, error)
	SaveRatingMode(model.RatingMode) error
	RecentWordAggregates(ctx context.Context, window int) ([]model.WordAggregate, error)
	Reset() error
}

// DeckOptions controls how cards are dealt for a run.
type DeckOptions struct {
	Cards      int
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
}

// Env carries the collaborators the app is assembled from.
type Env struct {
	Repo    Repository
	Library content.Library
	// Words overrides Library.Words as the card table.
	Words   []model.Word
	Speaker speech.Speaker
	// Sayer overrides the Voice built from Speaker.
	Sayer  speech.Sayer
	Input  audio.Source
	Tones  audio.Tones
	VAD    vad.Config
	Deck   DeckOptions
	Dealer *deck.Dealer
	PIN    string
	Start  Screen
	Rand   *rand.Rand
	Log    zerolog.Logger
}

const (
	storyGap = time.Second
	rhymeGap = 800 * time.Millisecond
)

type taskMsg func()

type tickMsg time.Time

// App is the root Bubble Tea model. All controllers it owns are driven from
// its Update goroutine.
type App struct {
	env   Env
	sched loop.Scheduler
	log   zerolog.Logger

	gate    *gate.Gate
	ledger  *rewards.Ledger
	voice   speech.Sayer
	trainer *training.Controller
	follow  *training.Follow
	stories *playback.Player
	rhymes  *playback.Player
	words   []model.Word

	screen    Screen
	width     int
	height    int
	gateState gate.State

	home    homeView
	train   trainView
	library libraryView
	rewards rewardsView
	parent  parentView
}

// New assembles the app. post must deliver functions to the Update
// goroutine in order; it is handed to the playback goroutines.
func New(env Env, sched loop.Scheduler, post func(func())) *App {
	log := env.Log
	a := &App{env: env, sched: sched, log: log, words: env.Words}
	if len(a.words) == 0 {
		a.words = env.Library.Words
	}
	if env.Dealer == nil {
		a.env.Dealer = deck.New()
	}
	if env.Tones == nil {
		a.env.Tones = audio.Mute{}
	}

	a.gate = gate.New(env.Repo, sched, log.With().Str("component", "gate").Logger())
	a.ledger = rewards.NewLedger(env.Repo, sched.Now, log.With().Str("component", "rewards").Logger())
	a.voice = env.Sayer
	if a.voice == nil {
		a.voice = speech.NewVoice(env.Speaker, sched, log.With().Str("component", "voice").Logger())
	}

	a.trainer = training.New(training.Deps{
		Monitor:  vad.New(env.VAD, env.Input, sched, log.With().Str("component", "vad").Logger()),
		Gate:     a.gate,
		Voice:    a.voice,
		Tones:    a.env.Tones,
		Reporter: training.ReporterFunc(a.runCompleted),
		History:  env.Repo,
		Mode:     a.ratingMode,
		Phrases:  env.Library.Phrases,
		Sched:    sched,
		Rand:     env.Rand,
		Log:      log.With().Str("component", "training").Logger(),
	})
	a.trainer.OnChange(a.trainingChanged)

	a.follow = training.NewFollow(training.FollowDeps{
		Monitor: vad.New(env.VAD, env.Input, sched, log.With().Str("component", "follow").Logger()),
		Voice:   a.voice,
		Tones:   a.env.Tones,
		Phrases: env.Library.Phrases,
		Sched:   sched,
		Log:     log.With().Str("component", "follow").Logger(),
	})

	playLog := log.With().Str("component", "playback").Logger()
	a.stories = playback.New(env.Speaker, playback.Options{Gap: storyGap}, post, playLog)
	a.rhymes = playback.New(env.Speaker, playback.Options{Gap: rhymeGap}, post, playLog)

	a.gate.Subscribe(a.gateChanged)
	a.gateState = a.gate.State()
	a.parent = newParentView()
	a.goTo(env.Start)
	return a
}

func task(fn func()) tea.Cmd {
	return func() tea.Msg { return taskMsg(fn) }
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if a.screen == ScreenHome && a.env.Library.Phrases.Greeting != "" {
		cmds = append(cmds, task(func() { a.voice.Say(a.env.Library.Phrases.Greeting, nil) }))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil
	case taskMsg:
		msg()
		return a, nil
	case tickMsg:
		a.gateState = a.gate.State()
		return a, tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.Shutdown()
			return a, tea.Quit
		}
		switch a.screen {
		case ScreenHome:
			return a.updateHome(msg)
		case ScreenTraining:
			return a.updateTraining(msg)
		case ScreenLock:
			return a.updateLock(msg)
		case ScreenRewards:
			return a.updateRewards(msg)
		case ScreenStories, ScreenRhymes:
			return a.updateLibrary(msg)
		case ScreenParent:
			return a.updateParent(msg)
		}
		return a, nil
	default:
		if a.screen == ScreenParent {
			return a, a.parent.forward(msg)
		}
		return a, nil
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var body string
	switch a.screen {
	case ScreenTraining:
		body = a.viewTraining()
	case ScreenLock:
		body = a.viewLock()
	case ScreenRewards:
		body = a.viewRewards()
	case ScreenStories, ScreenRhymes:
		body = a.viewLibrary()
	case ScreenParent:
		body = a.viewParent()
	default:
		body = a.viewHome()
	}
	if a.width == 0 || a.height == 0 {
		return body
	}
	footer := footerStyle.Render(a.footer())
	if a.height < 3 {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, body)
	}
	main := lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, body)
	return main + "\n" + lipgloss.Place(a.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

// Screen returns the active screen.
func (a *App) Screen() Screen { return a.screen }

// Shutdown stops every activity and closes the gate session.
func (a *App) Shutdown() {
	a.trainer.Exit()
	a.follow.Stop()
	a.stories.Stop()
	a.rhymes.Stop()
	a.voice.Cancel()
	a.gate.EndSession()
}

// goTo switches screens, winding down whatever the old screen was running.
func (a *App) goTo(s Screen) {
	switch a.screen {
	case ScreenTraining:
		if s != ScreenTraining {
			a.trainer.Exit()
		}
	case ScreenStories, ScreenRhymes:
		if s != a.screen {
			a.stopLibrary()
		}
	}
	a.screen = s
	a.gateState = a.gate.State()
	switch s {
	case ScreenRewards:
		a.loadRewards()
	case ScreenStories, ScreenRhymes:
		a.library = libraryView{}
	case ScreenParent:
		a.parent.reset()
	case ScreenTraining:
		a.startTraining()
	}
}

func (a *App) ratingMode() model.RatingMode {
	mode, err := a.env.Repo.RatingMode()
	if err != nil {
		return model.DefaultRatingMode
	}
	return mode
}

func (a *App) gateChanged(st gate.State) {
	a.gateState = st
	a.trainer.GateChanged(st)
}

// dealCards builds the deck for a new run, favouring weak words when asked.
func (a *App) dealCards() []model.Word {
	opts := a.env.Deck
	if !opts.FocusWeak {
		return a.env.Dealer.Deal(a.words, opts.Cards)
	}
	aggs, err := a.env.Repo.RecentWordAggregates(context.Background(), opts.WeakWindow)
	if err != nil {
		a.log.Warn().Err(err).Msg("load weak words")
		return a.env.Dealer.Deal(a.words, opts.Cards)
	}
	weak := statsPkg.SelectWeakWords(aggs, opts.WeakTop)
	if len(weak) == 0 {
		a.log.Debug().Msg("no history for weak-word focus yet")
	}
	return a.env.Dealer.DealWeighted(a.words, opts.Cards, weak, opts.WeakFactor)
}

func (a *App) footer() string {
	segments := []string{fmt.Sprintf("今天已练习 %d 分钟", a.gateState.TodayUsedSeconds/60)}
	if a.gateState.SessionActive {
		segments = append(segments, "本次还剩 "+clock(a.gateState.RemainingSessionSeconds))
	}
	segments = append(segments, "ctrl+c 退出")
	return strings.Join(segments, "  ")
}

// clock formats seconds as m:ss.
func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
