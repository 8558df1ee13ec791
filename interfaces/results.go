package interfaces

import "time"

// SingleResult is the latest outcome of a single-value check.
type SingleResult struct {
	Time       time.Time     `json:"time"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
	Report     string        `json:"report,omitempty"`
	AlertLevel AlertLevel    `json:"alert_level"`
}

// TableResult is the latest outcome of a tabular check. Rows and AlertLevels
// have the same length; each row has len(ColumnHeaders) cells.
type TableResult struct {
	Time          time.Time     `json:"time"`
	Latency       time.Duration `json:"latency"`
	Error         string        `json:"error,omitempty"`
	ColumnHeaders []string      `json:"column_headers"`
	Rows          [][]string    `json:"rows"`
	AlertLevels   []AlertLevel  `json:"alert_levels"`
}

// TableMultiResult is one row of a historical series. Implementations must
// be JSON encodable, the remote transport sends them as-is.
type TableMultiResult interface {
	ResultTime() time.Time
	ResultAlertLevel() AlertLevel
}

// TableMultiRow is the general purpose TableMultiResult used by providers
// that have no specialised row type.
type TableMultiRow struct {
	Time       time.Time     `json:"time"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
	Values     []string      `json:"values"`
	AlertLevel AlertLevel    `json:"alert_level"`
}

func (r TableMultiRow) ResultTime() time.Time        { return r.Time }
func (r TableMultiRow) ResultAlertLevel() AlertLevel { return r.AlertLevel }
