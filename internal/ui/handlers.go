package ui

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/ui/notifier"
)

// pageLimit caps the runs shown on the dashboard.
const pageLimit = 50

type handlers struct {
	store    state.Store
	notifier *notifier.Notifier
	logger   *slog.Logger
}

func newHandlers(store state.Store, notify *notifier.Notifier, logger *slog.Logger) *handlers {
	return &handlers{store: store, notifier: notify, logger: logger}
}

func (h *handlers) routes(r chi.Router) {
	r.Get("/", h.runsPage)
	r.Get("/updates", h.runsUpdates)
	r.Get("/runs/{id}", h.runPage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", h.listRuns)
		r.Get("/{id}", h.getRun)
	})
}

// runsPage renders the run history.
func (h *handlers) runsPage(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(pageLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page("LeapML runs", "/updates", RunsTable(runs)).Render(r.Context(), w); err != nil {
		h.logger.Error("render runs page", "error", err)
	}
}

// runsUpdates is the long-lived SSE stream behind the runs page. It sends
// the table on connect and again after each notifier ping.
func (h *handlers) runsUpdates(w http.ResponseWriter, r *http.Request) {
	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)
	send := func() {
		runs, err := h.store.ListRuns(pageLimit)
		if err == nil {
			err = sse.PatchElementTempl(RunsTable(runs))
		}
		if err != nil {
			_ = sse.ConsoleError(err)
		}
	}

	send()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			send()
		}
	}
}

// runPage renders one run and its scores.
func (h *handlers) runPage(w http.ResponseWriter, r *http.Request) {
	run, scores, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page("Run "+shortID(run.ID), "", RunDetail(run, scores)).Render(r.Context(), w); err != nil {
		h.logger.Error("render run page", "run_id", run.ID, "error", err)
	}
}

// listRuns returns recent runs as JSON. ?limit=0 returns every run.
func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := pageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*state.Run{}
	}
	h.writeJSON(w, runs)
}

// RunResponse is the JSON body of /api/runs/{id}.
type RunResponse struct {
	Run    *state.Run      `json:"run"`
	Scores []ScoreResponse `json:"scores"`
}

// ScoreResponse is a recorded score with undefined R² values as null.
type ScoreResponse struct {
	Model      string       `json:"model"`
	Kind       string       `json:"kind"`
	BestParams model.Params `json:"best_params"`
	CVR2       *float64     `json:"cv_r2"`
	TrainR2    *float64     `json:"train_r2"`
	TestR2     *float64     `json:"test_r2"`
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	run, scores, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	resp := RunResponse{Run: run, Scores: make([]ScoreResponse, len(scores))}
	for i, s := range scores {
		resp.Scores[i] = ScoreResponse{
			Model:      s.Model,
			Kind:       s.Kind,
			BestParams: s.BestParams,
			CVR2:       output.NullableFloat(s.CVR2),
			TrainR2:    output.NullableFloat(s.TrainR2),
			TestR2:     output.NullableFloat(s.TestR2),
		}
	}
	h.writeJSON(w, resp)
}

// loadRun fetches the run named in the URL and its scores. It writes the
// error response itself and reports false when the request is done.
func (h *handlers) loadRun(w http.ResponseWriter, r *http.Request) (*state.Run, []state.Score, bool) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(id)
	if errors.Is(err, state.ErrRunNotFound) {
		http.Error(w, "run not found: "+id, http.StatusNotFound)
		return nil, nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	scores, err := h.store.GetScores(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	return run, scores, true
}

func (h *handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}
