// Package handlers serves the subset of the hosted document store's REST
// surface the game uses: appending to and reading /leaderboard.json.
package handlers

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/store"
)

// MaxBodySize limits the size of request bodies to 16KB
const MaxBodySize = 16 << 10

// MaxLimit caps limitToFirst so one request cannot dump the whole table.
const MaxLimit = 1000

type Config struct {
	Store  store.Store
	Logger *zap.Logger
}

type Handler struct {
	store     store.Store
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

func New(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		logger:    cfg.Logger.Sugar(),
		validator: validator.New(),
	}
}
