package handlers

import (
	"context"

	"github.com/upward-game/leaderboard/internal/models"
	"github.com/upward-game/leaderboard/internal/store"
)

// MockStore
type MockStore struct {
	AddFunc  func(ctx context.Context, rec models.ScoreRecord) (string, error)
	TopFunc  func(ctx context.Context, limit int) ([]store.Entry, error)
	PingFunc func(ctx context.Context) error
}

func (m *MockStore) Add(ctx context.Context, rec models.ScoreRecord) (string, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, rec)
	}
	return "mock-id", nil
}

func (m *MockStore) Top(ctx context.Context, limit int) ([]store.Entry, error) {
	if m.TopFunc != nil {
		return m.TopFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}
