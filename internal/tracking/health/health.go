// Package health provides system health monitoring and status reporting.
package health

// Status represents the overall health state of the system or a component.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// ComponentHealth is the health of one dependency.
type ComponentHealth struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report is the full system health report.
type Report struct {
	Status        Status                     `json:"status"`
	ChainHeight   uint64                     `json:"chain_height"`
	Subscriptions int                        `json:"subscriptions"`
	RefreshAge    string                     `json:"refresh_age,omitempty"`
	Components    map[string]ComponentHealth `json:"components"`
}
