// Package leaderboard ties the local ledger and the online board together:
// View renders the best times, preferring the online board and falling back
// to the ledger, and Completion records a finished run and later uploads it
// under the name the player confirms.
package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/upward-game/leaderboard/internal/models"
)

var refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "upward_leaderboard_refreshes_total",
	Help: "Leaderboard refreshes, by the source that was rendered",
}, []string{"source"})

// Display receives the rendered leaderboard text.
type Display interface {
	SetText(text string)
}

// LocalSource reads the on-device ledger.
type LocalSource interface {
	ReadAll() []models.ScoreRecord
}

// RemoteSource reads the online board.
type RemoteSource interface {
	FetchTop(ctx context.Context, limit int) ([]models.ScoreRecord, error)
}

// State is where a View is in its refresh cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateFallback
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFallback:
		return "fallback"
	case StateRendered:
		return "rendered"
	default:
		return "idle"
	}
}

// ViewConfig configures a View. Remote may be nil when the game runs
// without an online board.
type ViewConfig struct {
	Display         Display
	Local           LocalSource
	Remote          RemoteSource
	MaxEntries      int
	NameColumnWidth int
	Title           string

	// FetchTimeout bounds one shared refresh; defaults to 10s.
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

type View struct {
	display  Display
	local    LocalSource
	remote   RemoteSource
	renderer Renderer
	title    string
	logger   *zap.SugaredLogger

	fetchTimeout time.Duration

	group singleflight.Group
	mu    sync.Mutex
	state State
}

func NewView(cfg ViewConfig) *View {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10
	}
	if cfg.NameColumnWidth <= 0 {
		cfg.NameColumnWidth = 12
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &View{
		display:  cfg.Display,
		local:    cfg.Local,
		remote:   cfg.Remote,
		renderer: Renderer{MaxEntries: cfg.MaxEntries, NameColumnWidth: cfg.NameColumnWidth},
		title:    cfg.Title,
		logger:   cfg.Logger.Sugar(),

		fetchTimeout: cfg.FetchTimeout,
	}
}

// State returns the current refresh state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Render formats entries with the view's limits.
func (v *View) Render(entries []models.ScoreRecord, title string) string {
	return v.renderer.Render(entries, title)
}

// Refresh loads and renders the leaderboard and returns the rendered text.
// Calls made while a refresh is in flight share it. The shared refresh keeps
// the values of the ctx that started it but not its cancellation, and is
// bounded by the fetch timeout instead. A caller whose ctx ends first gets
// "" back; the display is still updated when the refresh finishes.
func (v *View) Refresh(ctx context.Context) string {
	ch := v.group.DoChan("refresh", func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.fetchTimeout)
		defer cancel()
		return v.refresh(shared), nil
	})

	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return ""
	}
}

// RefreshAsync runs Refresh on its own goroutine.
func (v *View) RefreshAsync(ctx context.Context) <-chan string {
	out := make(chan string, 1)
	go func() {
		out <- v.Refresh(ctx)
	}()
	return out
}

func (v *View) refresh(ctx context.Context) string {
	if v.remote != nil {
		v.setState(StateLoading)
		v.show(LoadingText)

		online, err := v.remote.FetchTop(ctx, v.renderer.MaxEntries)
		if err == nil && len(online) > 0 {
			refreshes.WithLabelValues("remote").Inc()
			return v.finish(v.renderer.Render(online, v.title))
		}
		if err != nil {
			v.logger.Warnw("Online leaderboard unavailable, showing local times", "error", err)
		} else {
			v.logger.Infow("Online leaderboard empty, showing local times")
		}
	}

	v.setState(StateFallback)
	refreshes.WithLabelValues("local").Inc()
	return v.finish(v.renderer.Render(v.local.ReadAll(), v.title))
}

func (v *View) finish(text string) string {
	v.show(text)
	v.setState(StateRendered)
	return text
}

func (v *View) show(text string) {
	if v.display != nil {
		v.display.SetText(text)
	}
}

func (v *View) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}
