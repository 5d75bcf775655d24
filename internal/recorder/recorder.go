package recorder

import "time"

// Run status values.
const (
	StatusOK      = "OK"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// RunRecord describes one refresh run.
type RunRecord struct {
	RunID     string            `json:"runId"`
	Trigger   string            `json:"trigger"` // "manual", "api", "cron"
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"durationNs"`
	Status    string            `json:"status"`
	Date      string            `json:"date,omitempty"`
	Score     float64           `json:"score"`
	Label     string            `json:"label,omitempty"`
	Points    int               `json:"points"`
	Failed    map[string]string `json:"failed,omitempty"` // index key -> error
	Error     string            `json:"error,omitempty"`
}

// Recorder keeps an audit trail of refresh runs for later analysis.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
