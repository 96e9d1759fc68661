package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/db"
	"github.com/thatsimonsguy/cnc-control/internal/control"
	"github.com/thatsimonsguy/cnc-control/internal/execstate"
	"github.com/thatsimonsguy/cnc-control/internal/kinematics"
	"github.com/thatsimonsguy/cnc-control/internal/outputs"
)

// Outputs is the part of the output manager the API drives.
type Outputs interface {
	SetDigital(ctx context.Context, mask uint8, on, synchronized bool) error
	SetAnalog(ctx context.Context, mask uint8, duty float64, synchronized bool) error
	Status() []outputs.Status
}

// Sampler reports the current control pin sample.
type Sampler interface {
	Sample() control.Sample
}

type Server struct {
	db       *sql.DB
	state    *execstate.State
	controls Sampler
	outputs  Outputs
	resetter control.Resetter
	axes     kinematics.Axes
}

type StatusResponse struct {
	State    execstate.Status `json:"state"`
	Controls ControlsResponse `json:"controls"`
	Outputs  []outputs.Status `json:"outputs"`
	MPos     []float64        `json:"mpos"`
}

type ControlsResponse struct {
	Defined   string `json:"defined"`
	Triggered string `json:"triggered"`
}

type RealtimeRequest struct {
	Command string `json:"command"`
}

type DigitalRequest struct {
	Mask         uint8 `json:"mask"`
	On           bool  `json:"on"`
	Synchronized bool  `json:"synchronized"`
}

type AnalogRequest struct {
	Mask         uint8   `json:"mask"`
	Duty         float64 `json:"duty"`
	Synchronized bool    `json:"synchronized"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

var realtimeCommands = map[string]execstate.ExecState{
	"cycle_start":   execstate.ExecCycleStart,
	"feed_hold":     execstate.ExecFeedHold,
	"safety_door":   execstate.ExecSafetyDoor,
	"status_report": execstate.ExecStatusReport,
}

func NewServer(database *sql.DB, state *execstate.State, controls Sampler, outs Outputs, resetter control.Resetter, axes kinematics.Axes) *Server {
	return &Server{
		db:       database,
		state:    state,
		controls: controls,
		outputs:  outs,
		resetter: resetter,
		axes:     axes,
	}
}

// Handler returns the API routes wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/realtime", s.handleRealtime)
	mux.HandleFunc("/api/outputs/digital", s.handleDigital)
	mux.HandleFunc("/api/outputs/analog", s.handleAnalog)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.Handle("/metrics", promhttp.Handler())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", addr).Msg("Starting REST API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	st := s.state.Snapshot()
	resp := StatusResponse{
		State:   st,
		Outputs: s.outputs.Status(),
		MPos:    s.axes.Mpos(st.Position),
	}
	if s.controls != nil {
		sample := s.controls.Sample()
		resp.Controls = ControlsResponse{Defined: sample.Defined.String(), Triggered: sample.Triggered.String()}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req RealtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.Command == "reset" {
		s.resetter.PerformReset()
	} else {
		bit, ok := realtimeCommands[req.Command]
		if !ok {
			s.writeError(w, http.StatusBadRequest, "Invalid command. Valid commands: cycle_start, feed_hold, safety_door, status_report, reset")
			return
		}
		s.state.Exec.Set(bit)
	}

	log.Info().Str("command", req.Command).Msg("Realtime command via API")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDigital(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req DigitalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Mask >= 1<<outputs.NumDigital {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mask. Outputs 0-%d only", outputs.NumDigital-1))
		return
	}

	if err := s.outputs.SetDigital(r.Context(), req.Mask, req.On, req.Synchronized); err != nil {
		log.Error().Err(err).Uint8("mask", req.Mask).Bool("on", req.On).Msg("Digital output command failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAnalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req AnalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Mask >= 1<<outputs.NumAnalog {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mask. Outputs 0-%d only", outputs.NumAnalog-1))
		return
	}

	if err := s.outputs.SetAnalog(r.Context(), req.Mask, req.Duty, req.Synchronized); err != nil {
		log.Error().Err(err).Uint8("mask", req.Mask).Float64("duty", req.Duty).Msg("Analog output command failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Journal disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	events, err := db.RecentControlEvents(s.db, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read control events")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
