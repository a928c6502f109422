package models

import "time"

// EntityApiResponse represents a workflow entity over the API.
type EntityApiResponse struct {
	ID           int64          `json:"id"`
	ExternalID   string         `json:"externalId"`
	WorkflowType string         `json:"workflowType"`
	BusinessKey  string         `json:"businessKey"`
	CurrentStage string         `json:"currentStage"`
	Payload      map[string]any `json:"payload,omitempty"`
	Created      time.Time      `json:"created"`
	Modified     time.Time      `json:"modified"`
}
