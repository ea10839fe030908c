package leaderboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/models"
)

// MockDisplay records every text it was given
type MockDisplay struct {
	mu    sync.Mutex
	Texts []string
}

func (m *MockDisplay) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
}

func (m *MockDisplay) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Texts) == 0 {
		return ""
	}
	return m.Texts[len(m.Texts)-1]
}

type MockLocal struct {
	Records []models.ScoreRecord
	Calls   int
}

func (m *MockLocal) ReadAll() []models.ScoreRecord {
	m.Calls++
	return m.Records
}

type MockRemote struct {
	FetchTopFunc func(ctx context.Context, limit int) ([]models.ScoreRecord, error)
	calls        atomic.Int32
}

func (m *MockRemote) FetchTop(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
	m.calls.Add(1)
	if m.FetchTopFunc != nil {
		return m.FetchTopFunc(ctx, limit)
	}
	return nil, nil
}

func TestRefresh_RemoteResults(t *testing.T) {
	display := &MockDisplay{}
	local := &MockLocal{Records: []models.ScoreRecord{{Name: "Local", Time: 1}}}
	var gotLimit int
	remote := &MockRemote{FetchTopFunc: func(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
		gotLimit = limit
		return []models.ScoreRecord{{Name: "Online", Time: 2}}, nil
	}}

	v := NewView(ViewConfig{Display: display, Local: local, Remote: remote, MaxEntries: 5, Logger: zap.NewNop()})
	text := v.Refresh(context.Background())

	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}
	if len(display.Texts) != 2 || display.Texts[0] != LoadingText {
		t.Errorf("display texts = %q, want loading then table", display.Texts)
	}
	if !strings.Contains(text, "Online") || strings.Contains(text, "Local") {
		t.Errorf("text = %q, want online-only table", text)
	}
	if local.Calls != 0 {
		t.Error("local store read despite online results")
	}
	if v.State() != StateRendered {
		t.Errorf("state = %v, want rendered", v.State())
	}
}

func TestRefresh_FallsBackToLocal(t *testing.T) {
	tests := []struct {
		name  string
		fetch func(ctx context.Context, limit int) ([]models.ScoreRecord, error)
	}{
		{"Remote error", func(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
			return nil, errors.New("dial tcp: connection refused")
		}},
		{"Remote empty", func(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
			return []models.ScoreRecord{}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display := &MockDisplay{}
			local := &MockLocal{Records: []models.ScoreRecord{
				{Name: "Slow", Time: 30},
				{Name: "Fast", Time: 10},
				{Name: models.DefaultName, Time: 0.5},
			}}
			v := NewView(ViewConfig{
				Display:    display,
				Local:      local,
				Remote:     &MockRemote{FetchTopFunc: tt.fetch},
				MaxEntries: 2,
			})

			text := v.Refresh(context.Background())
			want := "Leaderboard\n" +
				" 1.  Player        00:00:500\n" +
				" 2.  Fast          00:10:000\n"
			if text != want {
				t.Errorf("text =\n%q\nwant\n%q", text, want)
			}
			if display.Texts[0] != LoadingText || display.Last() != want {
				t.Errorf("display texts = %q", display.Texts)
			}
		})
	}
}

func TestRefresh_NoRemoteSkipsLoading(t *testing.T) {
	display := &MockDisplay{}
	v := NewView(ViewConfig{Display: display, Local: &MockLocal{}})

	if got := v.Refresh(context.Background()); got != EmptyText {
		t.Errorf("text = %q, want %q", got, EmptyText)
	}
	if len(display.Texts) != 1 || display.Texts[0] != EmptyText {
		t.Errorf("display texts = %q, want only the empty message", display.Texts)
	}
}

func TestRefresh_ConcurrentCallsShareFetch(t *testing.T) {
	release := make(chan struct{})
	remote := &MockRemote{FetchTopFunc: func(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
		<-release
		return []models.ScoreRecord{{Name: "Zoe", Time: 1}}, nil
	}}
	v := NewView(ViewConfig{Display: &MockDisplay{}, Local: &MockLocal{}, Remote: remote})

	first := v.RefreshAsync(context.Background())
	// Wait until the first refresh is blocked inside FetchTop.
	deadline := time.Now().Add(2 * time.Second)
	for remote.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if v.State() != StateLoading {
		t.Errorf("state = %v, want loading", v.State())
	}
	second := v.RefreshAsync(context.Background())
	time.Sleep(50 * time.Millisecond)
	close(release)

	a, b := <-first, <-second
	if a != b {
		t.Errorf("refresh results differ: %q vs %q", a, b)
	}
	if n := remote.calls.Load(); n != 1 {
		t.Errorf("FetchTop called %d times, want 1", n)
	}
}

func TestRefresh_SharedFetchOutlivesFirstCaller(t *testing.T) {
	release := make(chan struct{})
	remote := &MockRemote{FetchTopFunc: func(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []models.ScoreRecord{{Name: "Ada", Time: 1}}, nil
	}}
	local := &MockLocal{}
	display := &MockDisplay{}
	v := NewView(ViewConfig{Display: display, Local: local, Remote: remote, Logger: zap.NewNop()})

	ctx, cancel := context.WithCancel(context.Background())
	first := v.RefreshAsync(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for remote.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	second := v.RefreshAsync(context.Background())
	time.Sleep(50 * time.Millisecond)

	cancel()
	if got := <-first; got != "" {
		t.Errorf("cancelled caller got %q, want empty", got)
	}
	close(release)

	got := <-second
	if !strings.Contains(got, "Ada") {
		t.Errorf("joined caller got %q, want the online board", got)
	}
	if local.Calls != 0 {
		t.Errorf("fell back to local %d times", local.Calls)
	}
	if n := remote.calls.Load(); n != 1 {
		t.Errorf("FetchTop called %d times, want 1", n)
	}
	if !strings.Contains(display.Last(), "Ada") {
		t.Errorf("display = %q", display.Last())
	}
}

func TestRefresh_SharedFetchIsBounded(t *testing.T) {
	remote := &MockRemote{FetchTopFunc: func(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	local := &MockLocal{Records: []models.ScoreRecord{{Name: "Bo", Time: 2}}}
	v := NewView(ViewConfig{Display: &MockDisplay{}, Local: local, Remote: remote, FetchTimeout: 20 * time.Millisecond})

	got := v.Refresh(context.Background())
	if !strings.Contains(got, "Bo") {
		t.Errorf("got %q, want local fallback after the fetch timed out", got)
	}
}
