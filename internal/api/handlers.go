package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brandbolt/roasrobo/internal/auth"
	"github.com/brandbolt/roasrobo/internal/pkg/logger"
	"github.com/brandbolt/roasrobo/internal/runner"
	"github.com/brandbolt/roasrobo/internal/status"
)

// Handlers holds the HTTP handler dependencies
type Handlers struct {
	store        *status.Store
	runner       *runner.Runner
	authManager  *auth.AuthManager
	defaultEmail string
	runTimeout   time.Duration
	startedAt    time.Time
}

// NewHandlers creates the handler set. authManager may be nil.
func NewHandlers(store *status.Store, r *runner.Runner, authManager *auth.AuthManager, defaultEmail string) *Handlers {
	return &Handlers{
		store:        store,
		runner:       r,
		authManager:  authManager,
		defaultEmail: defaultEmail,
		runTimeout:   10 * time.Minute,
		startedAt:    time.Now(),
	}
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// GetStatus returns the full automation status snapshot
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Get())
}

// ToggleControl flips one rule toggle and returns the updated control set
func (h *Handlers) ToggleControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Control string `json:"control"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enabled, err := h.store.ToggleRule(req.Control)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown control: "+req.Control)
		return
	}

	st := h.store.Get()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"control":  req.Control,
		"enabled":  enabled,
		"controls": st.Controls,
	})
}

// ToggleAutomation flips the master automation switch
func (h *Handlers) ToggleAutomation(w http.ResponseWriter, r *http.Request) {
	enabled := h.store.ToggleAutomation()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"automationEnabled": enabled,
	})
}

// RunScript triggers an automation run in the background. Gating rejections
// surface as 409 so callers can distinguish "busy" from "accepted".
func (h *Handlers) RunScript(w http.ResponseWriter, r *http.Request) {
	st := h.store.Get()
	if st.IsRunning {
		respondError(w, http.StatusConflict, "automation is already running")
		return
	}
	if !st.AutomationEnabled {
		respondError(w, http.StatusConflict, "automation is disabled")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()
		if _, err := h.runner.RunNow(ctx); err != nil {
			// A concurrent trigger can still win the gate between our
			// snapshot check and RunNow; that is not a failure.
			if errors.Is(err, status.ErrAlreadyRunning) || errors.Is(err, status.ErrAutomationDisabled) {
				logger.Info("manual run skipped", "reason", err.Error())
				return
			}
			logger.Error("manual run failed", "error", err.Error())
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "automation run started",
	})
}

// FindToScale builds the scale-candidate digest and emails it, preferring
// the signed-in user's address over the configured default.
func (h *Handlers) FindToScale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	// Body is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)

	recipient := req.Email
	if recipient == "" && h.authManager != nil {
		if session := h.authManager.GetSession(r); session != nil {
			recipient = session.Email
		}
	}
	if recipient == "" {
		recipient = h.defaultEmail
	}

	candidates, err := h.runner.FindCampaignsToScale(r.Context(), recipient)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(candidates),
		"campaigns": candidates,
		"recipient": recipient,
	})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
