package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Tasks
	mux.Handle("GET /api/v1/workspaces/{id}/tasks", chain(http.HandlerFunc(h.ListTasks)))

	// Clusters
	mux.Handle("GET /api/v1/workspaces/{id}/state", chain(http.HandlerFunc(h.GetState)))
	mux.Handle("GET /api/v1/workspaces/{id}/kubeconfig", chain(http.HandlerFunc(h.GetKubeconfig)))
	mux.Handle("POST /api/v1/workspaces/{id}/clusters", chain(http.HandlerFunc(h.CreateCluster)))
	mux.Handle("PUT /api/v1/workspaces/{id}/clusters", chain(http.HandlerFunc(h.UpdateCluster)))

	// PVC
	mux.Handle("POST /api/v1/workspaces/{id}/pvcs", chain(http.HandlerFunc(h.CreatePVC)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/pvcs/{name}", chain(http.HandlerFunc(h.DeletePVC)))

	// Volumes
	mux.Handle("POST /api/v1/workspaces/{id}/volumes", chain(http.HandlerFunc(h.ProvisionVolume)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/volumes/{name}", chain(http.HandlerFunc(h.DeprovisionVolume)))
	mux.Handle("POST /api/v1/workspaces/{id}/volumes/{name}/bind", chain(http.HandlerFunc(h.BindVolume)))
	mux.Handle("POST /api/v1/workspaces/{id}/volumes/{name}/unbind", chain(http.HandlerFunc(h.UnbindVolume)))

	// Services / applications
	mux.Handle("POST /api/v1/workspaces/{id}/services", chain(http.HandlerFunc(h.ProvisionService)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/services/{name}", chain(http.HandlerFunc(h.DeprovisionService)))
	mux.Handle("POST /api/v1/workspaces/{id}/applications", chain(http.HandlerFunc(h.ProvisionApplication)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/applications/{name}", chain(http.HandlerFunc(h.DeprovisionApplication)))

	// Routes / images
	mux.Handle("POST /api/v1/workspaces/{id}/routes", chain(http.HandlerFunc(h.ProvisionRoute)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/routes/{domain}", chain(http.HandlerFunc(h.DeprovisionRoute)))
	mux.Handle("POST /api/v1/workspaces/{id}/images", chain(http.HandlerFunc(h.DeployImage)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/images", chain(http.HandlerFunc(h.DeleteImage)))

	// Teardown
	mux.Handle("DELETE /api/v1/workspaces/{id}", chain(http.HandlerFunc(h.DeprovisionWorkspace)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/records", chain(http.HandlerFunc(h.PurgeWorkspaceRecords)))
	mux.Handle("DELETE /api/v1/organizations/{id}", chain(http.HandlerFunc(h.DeprovisionOrganization)))

	// Session events
	mux.Handle("GET /api/v1/events/{session}", chain(http.HandlerFunc(h.StreamEvents)))
}
