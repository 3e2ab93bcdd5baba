package model

import "time"

// Health statuses produced by the repository probe.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthChecks records the outcome of each individual probe step.
type HealthChecks struct {
	Connectivity bool `json:"connectivity"`
	TableExists  bool `json:"table_exists"`
	Metrics      bool `json:"metrics"`
}

// HealthMetrics carries the aggregate counters gathered by the probe.
type HealthMetrics struct {
	Total         int64      `json:"total"`
	Active        int64      `json:"active"`
	Inactive      int64      `json:"inactive"`
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
}

// EntityHealth is the composite result of the three-step health probe.
type EntityHealth struct {
	Entity  string        `json:"entity"`
	Status  string        `json:"status"`
	Checks  HealthChecks  `json:"checks"`
	Metrics HealthMetrics `json:"metrics"`
}

// EntityStats is the reduced metric set for dashboard display.
type EntityStats struct {
	Entity   string `json:"entity"`
	Total    int64  `json:"total"`
	Active   int64  `json:"active"`
	Inactive int64  `json:"inactive"`
}
