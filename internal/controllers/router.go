package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *EntitiesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/entities", c.RequireActor(c.handleCreateEntity))
	mux.HandleFunc("GET /api/entities", c.RequireActor(c.handleListEntities))
	mux.HandleFunc("GET /api/entities/{id}", c.RequireActor(c.handleGetEntity))
	mux.HandleFunc("POST /api/entities/{id}/transitions", c.RequireActor(c.handleTransitionEntity))
	mux.HandleFunc("GET /api/entities/{id}/history", c.RequireActor(c.handleGetEntityHistory))
	mux.HandleFunc("GET /api/entities/{id}/actions", c.RequireActor(c.handleGetValidActions))
}
func (c *GatesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/gates", c.RequireActor(c.handleGetGateStates))
}
func (c *DefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/definitions", c.RequireActor(c.handleListDefinitions))
	mux.HandleFunc("GET /api/definitions/{workflowType}", c.RequireActor(c.handleGetDefinitionByType))
}
func (c *ActorsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/actors", c.requireActorOrBootstrap(c.handleCreateActor))
	mux.HandleFunc("GET /api/actors", c.RequireActor(c.handleListActors))
}
