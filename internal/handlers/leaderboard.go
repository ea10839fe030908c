package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/upward-game/leaderboard/internal/models"
)

// GetLeaderboard handles GET /leaderboard.json
//
// The answer is an object of id -> record, or null when there is nothing to
// return. orderBy must be the JSON string "time" when given; limitToFirst
// keeps that many of the fastest records.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if orderBy := q.Get("orderBy"); orderBy != "" {
		var path string
		if err := json.Unmarshal([]byte(orderBy), &path); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "orderBy must be a valid JSON encoded path")
			return
		}
		if path != "time" {
			h.errorResponse(w, http.StatusBadRequest, "Index not defined, add \".indexOn\": \""+path+"\"")
			return
		}
	}

	limit := MaxLimit
	if l := q.Get("limitToFirst"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			h.errorResponse(w, http.StatusBadRequest, "limitToFirst must be a positive integer")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	entries, err := h.store.Top(ctx, limit)
	if err != nil {
		h.logger.Errorw("Failed to query leaderboard", "limit", limit, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Query failed")
		return
	}

	if len(entries) == 0 {
		h.jsonResponse(w, http.StatusOK, nil)
		return
	}

	out := make(map[string]models.ScoreRecord, len(entries))
	for _, e := range entries {
		out[e.ID] = e.Record
	}
	h.jsonResponse(w, http.StatusOK, out)
}

// PostScore handles POST /leaderboard.json and answers {"name": "<new id>"}.
func (h *Handler) PostScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	defer r.Body.Close()

	var rec models.ScoreRecord
	if !gjson.ParseBytes(body).IsObject() {
		h.errorResponse(w, http.StatusBadRequest, "Invalid data; couldn't parse JSON object")
		return
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		h.logger.Warnw("Rejected malformed score", "error", err, "preview", string(body[:min(len(body), 200)]))
		h.errorResponse(w, http.StatusBadRequest, "Invalid data; couldn't parse JSON object")
		return
	}
	if err := h.validator.Struct(rec); err != nil || !rec.Valid() {
		h.logger.Warnw("Rejected invalid score", "name", rec.Name, "time", rec.Time, "error", err)
		h.errorResponse(w, http.StatusBadRequest, "Invalid score")
		return
	}

	id, err := h.store.Add(r.Context(), rec)
	if err != nil {
		h.logger.Errorw("Failed to store score", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Write failed")
		return
	}

	h.logger.Infow("Score stored", "id", id, "name", rec.Name, "time", rec.Time)
	h.jsonResponse(w, http.StatusOK, models.PushResponse{Name: id})
}
