package dto

// SyncSettingsRequest represents a request to change the sweep interval
type SyncSettingsRequest struct {
	IntervalHours int `json:"intervalHours" binding:"required,min=1"`
}

// SyncSettingsResponse is the current gate configuration
type SyncSettingsResponse struct {
	IntervalHours int   `json:"intervalHours"`
	LastRunTime   int64 `json:"lastRunTime"`
}

// SyncRunResponse acknowledges a manually triggered sweep
type SyncRunResponse struct {
	SweepID string `json:"sweepId"`
}
