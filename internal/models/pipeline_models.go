package models

// BatchSummary reports one batch, or the running totals from Summary.
// Total excludes skipped duplicates.
type BatchSummary struct {
	Total                 int     `json:"total"`
	Flagged               int     `json:"flagged"`
	Skipped               int     `json:"skipped"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

type IngestOutcome struct {
	TransactionID string      `json:"transaction_id"`
	Skipped       bool        `json:"skipped"`
	Score         ScoreResult `json:"score"`
	Alert         *FraudAlert `json:"alert,omitempty"`
}

// IngestRequest is the body of POST /api/v1/pipeline/ingest.
type IngestRequest struct {
	Transactions []RawTransaction `json:"transactions"`
	DelayMS      int              `json:"delay_ms"`
}

// TriggerRequest is the body of POST /api/v1/pipeline/trigger. A nil DelayMS
// keeps the configured delay; an explicit 0 disables it.
type TriggerRequest struct {
	DataFile string `json:"data_file"`
	DelayMS  *int   `json:"delay_ms"`
}

type TriggerResponse struct {
	Status   string `json:"status"`
	DataFile string `json:"data_file"`
}

// ObserverGreeting is the first frame written to a new websocket observer.
type ObserverGreeting struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
