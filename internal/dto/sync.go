package dto

// TriggerSyncRequest is the body of an on-demand sync trigger. An empty
// session falls back to discovery against the landing page.
type TriggerSyncRequest struct {
	Session string `json:"session" binding:"omitempty,sessioncode"`
}

// TriggerSyncResponse acknowledges an enqueued run.
type TriggerSyncResponse struct {
	RunID   string `json:"run_id"`
	Session string `json:"session,omitempty"`
	Status  string `json:"status"`
}
