package models

// SearchEntitiesRequest filters the entity list. Query matches external_id
// and business_key with a contains search, mirroring the free-text box on
// every admin list page.
type SearchEntitiesRequest struct {
	WorkflowType string
	Stage        string
	BusinessKey  string
	Query        string
	Limit        int64
	Offset       int64
}

type SearchEntitiesResponse struct {
	Results  int                 `json:"results"`
	Offset   int64               `json:"offset"`
	Entities []EntityApiResponse `json:"entities"`
}
