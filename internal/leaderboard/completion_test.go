package leaderboard

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/localstore"
	"github.com/upward-game/leaderboard/internal/models"
	"github.com/upward-game/leaderboard/internal/prefs"
)

type MockUploader struct {
	EnqueueFunc func(name string, seconds float64) (<-chan bool, bool)
	Names       []string
	Times       []float64
}

func (m *MockUploader) Enqueue(name string, seconds float64) (<-chan bool, bool) {
	m.Names = append(m.Names, name)
	m.Times = append(m.Times, seconds)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(name, seconds)
	}
	return resolved(true), true
}

func newLedger(t *testing.T) *localstore.Store {
	t.Helper()
	p, err := prefs.OpenIni(filepath.Join(t.TempDir(), "upward.ini"))
	if err != nil {
		t.Fatal(err)
	}
	return localstore.New(p, localstore.CanonicalKeys, zap.NewNop())
}

func TestCompletion_RecordThenConfirm(t *testing.T) {
	ledger := newLedger(t)
	uploader := &MockUploader{}
	c := NewCompletion(ledger, uploader, zap.NewNop())

	idx, err := c.Complete(42.125)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Durable before the name is known
	if got := ledger.ReadAll(); len(got) != 1 || got[0].Name != models.DefaultName {
		t.Fatalf("ledger before confirm = %+v", got)
	}

	result, err := c.Confirm("  Zoe ")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !<-result {
		t.Error("upload result = false")
	}

	got := ledger.ReadAll()
	if got[idx].Name != "Zoe" {
		t.Errorf("stored name = %q, want Zoe", got[idx].Name)
	}
	if len(uploader.Names) != 1 || uploader.Names[0] != "Zoe" || uploader.Times[0] != 42.125 {
		t.Errorf("uploads = %v %v", uploader.Names, uploader.Times)
	}
}

func TestCompletion_BlankNameDefaults(t *testing.T) {
	uploader := &MockUploader{}
	c := NewCompletion(newLedger(t), uploader, nil)
	c.Complete(1)
	c.Confirm("")
	if uploader.Names[0] != models.DefaultName {
		t.Errorf("uploaded name = %q", uploader.Names[0])
	}
}

func TestCompletion_ConfirmWithoutRun(t *testing.T) {
	uploader := &MockUploader{}
	c := NewCompletion(newLedger(t), uploader, nil)

	result, err := c.Confirm("Zoe")
	if !errors.Is(err, ErrNoPendingRun) {
		t.Errorf("err = %v, want ErrNoPendingRun", err)
	}
	if <-result {
		t.Error("result = true without a run")
	}
	if len(uploader.Names) != 0 {
		t.Error("uploaded without a run")
	}
}

func TestCompletion_ConfirmTwiceUploadsOnce(t *testing.T) {
	uploader := &MockUploader{}
	c := NewCompletion(newLedger(t), uploader, nil)
	c.Complete(5)
	c.Confirm("A")
	c.Confirm("B")
	if len(uploader.Names) != 1 {
		t.Errorf("uploads = %d, want 1", len(uploader.Names))
	}
}

func TestCompletion_OfflineAndShed(t *testing.T) {
	ledger := newLedger(t)

	offline := NewCompletion(ledger, nil, nil)
	offline.Complete(3)
	result, err := offline.Confirm("Solo")
	if err != nil {
		t.Fatal(err)
	}
	if <-result {
		t.Error("offline upload reported success")
	}

	shed := NewCompletion(ledger, &MockUploader{EnqueueFunc: func(string, float64) (<-chan bool, bool) {
		return nil, false
	}}, nil)
	shed.Complete(4)
	result, _ = shed.Confirm("Busy")
	if <-result {
		t.Error("shed upload reported success")
	}

	// Local entries survive regardless of the upload outcome.
	if n := len(ledger.ReadAll()); n != 2 {
		t.Errorf("ledger has %d entries, want 2", n)
	}
}
