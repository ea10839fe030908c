package leaderboard

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/models"
)

var ErrNoPendingRun = errors.New("no completed run is waiting for a name")

// Ledger is the local ledger the completion flow writes to.
type Ledger interface {
	RecordRun(seconds float64) (int, error)
	SetName(index int, name string) error
}

// Uploader queues online submissions.
type Uploader interface {
	Enqueue(name string, seconds float64) (<-chan bool, bool)
}

// Completion records a finished run locally at once and uploads it once the
// player confirms a name. The local entry is never rolled back.
type Completion struct {
	ledger   Ledger
	uploader Uploader
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	index   int
	seconds float64
}

// NewCompletion builds the flow. uploader may be nil to run offline.
func NewCompletion(ledger Ledger, uploader Uploader, logger *zap.Logger) *Completion {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completion{
		ledger:   ledger,
		uploader: uploader,
		logger:   logger.Sugar(),
		index:    -1,
	}
}

// Complete stores the run time under a freshly reserved ledger index.
func (c *Completion) Complete(seconds float64) (int, error) {
	index, err := c.ledger.RecordRun(seconds)
	if err != nil {
		return -1, err
	}

	c.mu.Lock()
	c.index = index
	c.seconds = seconds
	c.mu.Unlock()
	return index, nil
}

// Confirm writes name to the pending run and queues its upload. The channel
// always delivers exactly one value: the upload outcome, or false when
// nothing could be uploaded. A local write error is returned but does not
// stop the upload.
func (c *Completion) Confirm(name string) (<-chan bool, error) {
	c.mu.Lock()
	index, seconds := c.index, c.seconds
	c.index = -1
	c.mu.Unlock()

	if index < 0 {
		return resolved(false), ErrNoPendingRun
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultName
	}

	localErr := c.ledger.SetName(index, name)
	if localErr != nil {
		c.logger.Errorw("Failed to store player name", "index", index, "error", localErr)
	}

	if c.uploader == nil {
		c.logger.Warnw("No online leaderboard configured, skipping upload", "index", index)
		return resolved(false), localErr
	}

	result, ok := c.uploader.Enqueue(name, seconds)
	if !ok {
		return resolved(false), localErr
	}
	return result, localErr
}

func resolved(v bool) <-chan bool {
	ch := make(chan bool, 1)
	ch <- v
	return ch
}
