package health

// Status is the aggregate health classification.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Report is the detailed health snapshot served over HTTP.
type Report struct {
	Status     Status            `json:"status"`
	Online     bool              `json:"online"`
	QueueDepth int               `json:"queue_depth"`
	Breakers   map[string]string `json:"breakers"`
	LastError  string            `json:"last_error,omitempty"`
}
