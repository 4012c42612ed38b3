// Package api exposes a string store over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gozephyr/kvstore"
	"github.com/gozephyr/kvstore/log"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store  *kvstore.Store[string, string]
	logger log.Logger
}

// NewHandler creates a new API handler.
func NewHandler(store *kvstore.Store[string, string], logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

/* ---------------- PUT /kv/{key} ---------------- */

type setRequest struct {
	Value string `json:"value"`
	TTLms int64  `json:"ttl_ms,omitempty"`
}

func (h *Handler) SetKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "missing key in URL", http.StatusBadRequest)
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.TTLms < 0 {
		http.Error(w, "ttl_ms cannot be negative", http.StatusBadRequest)
		return
	}

	if req.TTLms > 0 {
		h.store.PutWithTTL(key, req.Value, time.Duration(req.TTLms)*time.Millisecond)
	} else {
		h.store.Put(key, req.Value)
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---------------- GET /kv/{key} ---------------- */

type getResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	value, ok := h.store.Get(key)
	if !ok {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	writeJSON(w, getResponse{Key: key, Value: value})
}

/* ---------------- DELETE /kv/{key} ---------------- */

func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	if !h.store.Remove(key) {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---------------- GET /admin/keys ---------------- */

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.store.Keys()
	slices.Sort(keys)
	writeJSON(w, map[string][]string{"keys": keys})
}

/* ---------------- POST /admin/cleanup ---------------- */

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.store.Cleanup()
	h.logger.Info("manual cleanup", "removed", removed)
	writeJSON(w, map[string]int{"removed": removed})
}

/* ---------------- GET /admin/stats ---------------- */

type statsResponse struct {
	Size        int       `json:"size"`
	Capacity    int       `json:"capacity"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRatio    float64   `json:"hit_ratio"`
	Sets        int64     `json:"sets"`
	Removals    int64     `json:"removals"`
	Evictions   int64     `json:"evictions"`
	Expirations int64     `json:"expirations"`
	LastCleanup time.Time `json:"last_cleanup,omitzero"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	writeJSON(w, statsResponse{
		Size:        h.store.Size(),
		Capacity:    h.store.Capacity(),
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		HitRatio:    stats.HitRatio(),
		Sets:        stats.Sets,
		Removals:    stats.Removals,
		Evictions:   stats.Evictions,
		Expirations: stats.Expirations,
		LastCleanup: stats.LastCleanup,
	})
}

/* ---------------- GET /health ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
