package handler

import (
	"net/http"
	"time"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/api/models"
	"github.com/weatherdash/weatherdash/internal/api/response"
	"github.com/weatherdash/weatherdash/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   *resilience.Registry
	controller *analytics.Controller
}

// NewOpsHandler creates a new OpsHandler. registry and controller may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, controller *analytics.Controller) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		registry:   registry,
		controller: controller,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - not ready while an upstream circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	var open []string
	for _, p := range h.providerHealth() {
		if p.Level() == resilience.LevelDown {
			open = append(open, p.Name)
		}
	}
	if len(open) > 0 {
		health.Status = models.HealthStatusFail
		health.Details = map[string]interface{}{"openCircuits": open}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.controller != nil {
		sub := controllerStatus(h.controller.Snapshot())
		status.Subsystems = append(status.Subsystems, sub)
		status.Status = worst(status.Status, sub.Status)
	}

	for _, p := range h.providerHealth() {
		ps := providerStatus(p)
		status.Providers = append(status.Providers, ps)
		status.Status = worst(status.Status, ps.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) providerHealth() []resilience.ProviderHealth {
	if h.registry == nil {
		return nil
	}
	return h.registry.All()
}

func controllerStatus(st analytics.State) models.SubsystemStatus {
	detail := string(st.Phase)
	sub := models.SubsystemStatus{
		Name:   "analytics-controller",
		Status: models.HealthStatusOK,
		Detail: &detail,
	}
	if st.Phase == analytics.PhaseError {
		sub.Status = models.HealthStatusDegraded
		msg := detail + ": " + st.Error
		sub.Detail = &msg
	}
	return sub
}

func providerStatus(p resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            p.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        p.CircuitState.String(),
		ConsecutiveFailures: p.Counts.ConsecutiveFailures,
		LastSuccessAt:       models.NewTimestamp(p.LastSuccessAt),
		LastFailureAt:       models.NewTimestamp(p.LastFailureAt),
	}
	switch p.Level() {
	case resilience.LevelDown:
		ps.Status = models.HealthStatusFail
	case resilience.LevelDegraded:
		ps.Status = models.HealthStatusDegraded
	}
	if p.LastError != "" {
		msg := p.LastError
		ps.Message = &msg
	}
	return ps
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
