package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/startingnine/startingnine/pkg/types"
	"github.com/startingnine/startingnine/server/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads the collector's files through the store and returns JSON responses.
type Handler struct {
	store *store.Store
	mux   *http.ServeMux
	now   func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to the given store and registers all routes.
func New(st *store.Store) http.Handler {
	return newHandler(st, time.Now)
}

func newHandler(st *store.Store, now func() time.Time) *Handler {
	h := &Handler{store: st, mux: http.NewServeMux(), now: now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/matchups", h.matchups)
	h.mux.HandleFunc("/api/v1/matchups/", h.game) // subtree, extracts {gamePk}
	h.mux.HandleFunc("/api/v1/umpires", h.umpires)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: what is being served and how fresh it is.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st, err := h.store.Status()
	if err != nil {
		storeErr(w, err)
		return
	}

	today := h.now().UTC().Format("2006-01-02")
	resp := HealthResponse{
		Today:           today,
		MatchupsDate:    st.MatchupsDate,
		MatchupsRecords: st.MatchupsRecords,
		DegradedRecords: st.Degraded,
		UmpireCount:     st.Umpires,
		UmpiresWindow:   st.UmpiresWindow,
		FiringAlerts:    st.FiringAlerts,
	}
	if !st.MatchupsUpdatedAt.IsZero() {
		resp.MatchupsUpdatedAt = st.MatchupsUpdatedAt.Format(time.RFC3339)
	}
	resp.State = stateOf(st, today)
	resp.Diagnostics = computeDiagnostics(st, today)
	jsonResp(w, http.StatusOK, resp)
}

// matchups returns GET /api/v1/matchups: the whole daily cache, in the
// persisted shape.
func (h *Handler) matchups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	c, _, err := h.store.Matchups()
	if err != nil {
		storeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, c)
}

// game returns GET /api/v1/matchups/{gamePk}: the records for one game.
func (h *Handler) game(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/matchups/")
	if id == "" {
		h.matchups(w, r)
		return
	}

	players, ok, err := h.store.Game(id)
	if err != nil {
		storeErr(w, err)
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "game not found")
		return
	}
	c, _, _ := h.store.Matchups()
	jsonResp(w, http.StatusOK, GameResponse{Date: c.Date, GameID: id, Players: players})
}

// umpires returns GET /api/v1/umpires: the latest umpire report.
func (h *Handler) umpires(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rep, err := h.store.Umpires()
	if err != nil {
		storeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, rep)
}

// alerts returns GET /api/v1/alerts: firing and recently resolved collector
// alerts, newest first. No alert file yet means no alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rep, err := h.store.Alerts()
	if errors.Is(err, store.ErrNotFound) {
		rep, err = types.AlertReport{}, nil
	}
	if err != nil {
		storeErr(w, err)
		return
	}
	if rep.Alerts == nil {
		rep.Alerts = []types.Alert{}
	}
	jsonResp(w, http.StatusOK, rep)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// storeErr maps a store error to a response: a file the collector has not
// written yet is a 404, anything else a 500.
func storeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "not collected yet")
		return
	}
	slog.Error("api: store read failed", "err", err)
	jsonErr(w, http.StatusInternalServerError, "data unavailable")
}

// stateOf classifies what the server is serving.
func stateOf(st store.Status, today string) string {
	switch {
	case st.MatchupsDate == "":
		return "empty"
	case st.MatchupsDate != today:
		return "stale"
	case st.Degraded > 0:
		return "degraded"
	default:
		return "ok"
	}
}
