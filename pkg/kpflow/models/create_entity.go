package models

// CreateEntityRequest is the payload for creating a workflow entity.
// ExternalID is optional; a uuid is assigned when absent.
type CreateEntityRequest struct {
	ExternalID   string         `json:"externalId,omitempty"`
	WorkflowType string         `json:"workflowType"`
	BusinessKey  string         `json:"businessKey"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// CreateEntityResponse is returned on successful creation. Existing is true
// when the external id already had an entity and that one was returned.
type CreateEntityResponse struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"externalId"`
	Existing   bool   `json:"existing,omitempty"`
}
