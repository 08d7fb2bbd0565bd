package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/duration"
	"github.com/spiffcs/vitals/internal/log"
)

// Status summarizes the engine without the record payload.
type Status struct {
	Refreshing        bool       `json:"refreshing"`
	HasData           bool       `json:"has_data"`
	LastFetched       *time.Time `json:"last_fetched"`
	LastError         *string    `json:"last_error"`
	RefreshInterval   string     `json:"refresh_interval"`
	EffectiveInterval string     `json:"effective_interval"`
	PowerConstrained  bool       `json:"power_constrained"`
	LookbackDays      int        `json:"lookback_days"`
}

// Settings are the runtime-adjustable engine parameters.
type Settings struct {
	RefreshInterval   string `json:"refresh_interval"`
	EffectiveInterval string `json:"effective_interval"`
	LookbackDays      int    `json:"lookback_days"`
}

// SettingsUpdate is the body of PUT /api/v1/config. Absent fields are
// left unchanged.
type SettingsUpdate struct {
	RefreshInterval *string `json:"refresh_interval"`
	LookbackDays    *int    `json:"lookback_days" validate:"omitempty,oneof=7 14 30"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) status() Status {
	snap := s.engine.Snapshot()
	st := Status{
		Refreshing:        s.engine.IsRefreshing(),
		HasData:           snap.HasData(),
		RefreshInterval:   duration.FormatInterval(s.engine.Interval()),
		EffectiveInterval: duration.FormatInterval(s.engine.EffectiveInterval()),
		PowerConstrained:  s.engine.PowerConstrained(),
		LookbackDays:      s.engine.Lookback(),
	}
	if snap.HasData() {
		st.LastFetched = &snap.LastFetched
	}
	if msg := snap.ErrorMessage(); msg != "" {
		st.LastError = &msg
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleRefresh runs a cycle bound to the request. A client that
// disconnects cancels the cycle.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.engine.RefreshNow(r.Context()) {
		writeError(w, http.StatusConflict, "refresh already in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) settings() Settings {
	return Settings{
		RefreshInterval:   duration.FormatInterval(s.engine.Interval()),
		EffectiveInterval: duration.FormatInterval(s.engine.EffectiveInterval()),
		LookbackDays:      s.engine.Lookback(),
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "LookbackDays" {
			writeError(w, http.StatusBadRequest, "lookback_days must be one of 7, 14 or 30")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var interval time.Duration
	if req.RefreshInterval != nil {
		d, err := duration.ParseInterval(*req.RefreshInterval)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if d != 0 && d < constants.MinRefreshInterval {
			writeError(w, http.StatusBadRequest, "refresh_interval must be manual or at least "+duration.FormatInterval(constants.MinRefreshInterval))
			return
		}
		interval = d
	}

	if req.RefreshInterval != nil {
		s.engine.SetInterval(interval)
	}
	if req.LookbackDays != nil {
		if err := s.engine.SetLookback(*req.LookbackDays); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.settings())
}
