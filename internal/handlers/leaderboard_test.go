package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/models"
	"github.com/upward-game/leaderboard/internal/store"
)

func newTestHandler(s store.Store) *Handler {
	return New(Config{Store: s, Logger: zap.NewNop()})
}

func TestPostScore(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
		wantRecord models.ScoreRecord
	}{
		{
			name:       "Valid",
			body:       `{"name":"Ada","time":12.5,"timestamp":1700000000}`,
			wantStatus: http.StatusOK,
			wantRecord: models.ScoreRecord{Name: "Ada", Time: 12.5, Timestamp: 1700000000},
		},
		{
			name:       "Stringly Typed Time",
			body:       `{"name":"Ada","time":"7.25","timestamp":"5"}`,
			wantStatus: http.StatusOK,
			wantRecord: models.ScoreRecord{Name: "Ada", Time: 7.25, Timestamp: 5},
		},
		{
			name:       "Negative Time",
			body:       `{"name":"Ada","time":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Name Too Long",
			body:       `{"name":"` + strings.Repeat("x", 65) + `","time":1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Missing Time",
			body:       `{"name":"Ada"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Boolean Time",
			body:       `{"name":"Ada","time":true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Null Body",
			body:       `null`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Malformed",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Store Failure",
			body:       `{"name":"Ada","time":3}`,
			storeErr:   errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored *models.ScoreRecord
			h := newTestHandler(&MockStore{
				AddFunc: func(ctx context.Context, rec models.ScoreRecord) (string, error) {
					stored = &rec
					return "id-1", tt.storeErr
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/leaderboard.json", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.PostScore(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest && stored != nil {
				t.Errorf("rejected body reached the store as %+v", *stored)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if stored == nil || *stored != tt.wantRecord {
				t.Errorf("stored %+v, want %+v", stored, tt.wantRecord)
			}
			var resp models.PushResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Name != "id-1" {
				t.Errorf("response name = %q, want id-1", resp.Name)
			}
		})
	}
}

func TestPostScore_BodyTooLarge(t *testing.T) {
	h := newTestHandler(&MockStore{})
	body := `{"name":"` + strings.Repeat("x", MaxBodySize) + `","time":1}`
	req := httptest.NewRequest(http.MethodPost, "/leaderboard.json", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.PostScore(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestGetLeaderboard(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantStatus int
		wantLimit  int
	}{
		{name: "Defaults", query: url.Values{}, wantStatus: http.StatusOK, wantLimit: MaxLimit},
		{name: "Ordered And Limited", query: url.Values{"orderBy": {`"time"`}, "limitToFirst": {"5"}}, wantStatus: http.StatusOK, wantLimit: 5},
		{name: "Limit Capped", query: url.Values{"orderBy": {`"time"`}, "limitToFirst": {"100000"}}, wantStatus: http.StatusOK, wantLimit: MaxLimit},
		{name: "Unquoted OrderBy", query: url.Values{"orderBy": {"time"}}, wantStatus: http.StatusBadRequest},
		{name: "Unindexed OrderBy", query: url.Values{"orderBy": {`"$key"`}}, wantStatus: http.StatusBadRequest},
		{name: "Zero Limit", query: url.Values{"limitToFirst": {"0"}}, wantStatus: http.StatusBadRequest},
		{name: "Garbage Limit", query: url.Values{"limitToFirst": {"ten"}}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit := -1
			h := newTestHandler(&MockStore{
				TopFunc: func(ctx context.Context, limit int) ([]store.Entry, error) {
					gotLimit = limit
					return []store.Entry{
						{ID: "a", Record: models.ScoreRecord{Name: "Ada", Time: 1.5, Timestamp: 10}},
						{ID: "b", Record: models.ScoreRecord{Name: "Bob", Time: 2, Timestamp: 20}},
					}, nil
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/leaderboard.json?"+tt.query.Encode(), nil)
			w := httptest.NewRecorder()
			h.GetLeaderboard(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if gotLimit != -1 {
					t.Errorf("store queried on a rejected request")
				}
				return
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}

			var got map[string]models.ScoreRecord
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 2 || got["a"].Name != "Ada" || got["b"].Time != 2 {
				t.Errorf("unexpected body %v", got)
			}
		})
	}
}

func TestGetLeaderboard_EmptyIsNull(t *testing.T) {
	h := newTestHandler(&MockStore{})
	req := httptest.NewRequest(http.MethodGet, "/leaderboard.json", nil)
	w := httptest.NewRecorder()
	h.GetLeaderboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "null" {
		t.Errorf("body = %q, want null", body)
	}
}

func TestGetLeaderboard_StoreFailure(t *testing.T) {
	h := newTestHandler(&MockStore{
		TopFunc: func(ctx context.Context, limit int) ([]store.Entry, error) {
			return nil, errors.New("connection reset")
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/leaderboard.json", nil)
	w := httptest.NewRecorder()
	h.GetLeaderboard(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
