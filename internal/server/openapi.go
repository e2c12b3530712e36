package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Lucky Draw API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the lucky-draw box game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /qr.png
	getQR, _ := r.NewOperationContext(http.MethodGet, "/qr.png")
	getQR.SetSummary("Join QR code")
	getQR.SetDescription("PNG QR code linking to the game.")
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("image/png"))
	_ = r.AddOperation(getQR)

	// GET /api/config
	getConfig, _ := r.NewOperationContext(http.MethodGet, "/api/config")
	getConfig.SetSummary("Game configuration")
	getConfig.SetDescription("Roster names, box count, draw cap and reward policy.")
	getConfig.AddRespStructure(ConfigResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getConfig)

	// GET /api/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the shared state. Rewards of unopened boxes are hidden.")
	getState.AddRespStructure(luckydraw.GameState{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getState)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream. Starts with the current state, then one event per draw or reset.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket connection carrying the same events as /api/events.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// POST /api/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/login")
	postLogin.SetSummary("Member login")
	postLogin.SetDescription("Checks the member's password and returns a bearer token. Rejected if the member already drew or the draw cap is reached.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(LoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postLogin)

	// POST /api/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/logout")
	postLogout.SetSummary("Member logout")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// POST /api/draw
	postDraw, _ := r.NewOperationContext(http.MethodPost, "/api/draw")
	postDraw.SetSummary("Open a box")
	postDraw.SetDescription("Opens a box for the session's member. Requires Bearer token.")
	postDraw.AddReqStructure(DrawRequest{})
	postDraw.AddRespStructure(DrawResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postDraw.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postDraw.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postDraw.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postDraw.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postDraw.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postDraw)

	// POST /api/admin/login
	adminLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	adminLogin.SetSummary("Admin login")
	adminLogin.SetDescription("Sets the admin_session cookie.")
	adminLogin.AddReqStructure(AdminLoginRequest{})
	adminLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	adminLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminLogin)

	// POST /api/admin/logout
	adminLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	adminLogout.SetSummary("Admin logout")
	adminLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(adminLogout)

	// GET /api/admin/me
	adminMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	adminMe.SetSummary("Current admin")
	adminMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	adminMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminMe)

	// GET /api/admin/stats
	adminStats, _ := r.NewOperationContext(http.MethodGet, "/api/admin/stats")
	adminStats.SetSummary("Session statistics")
	adminStats.SetDescription("Counters, per-member results and the draw log newest first. Requires admin_session cookie.")
	adminStats.AddRespStructure(AdminStatsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	adminStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminStats)

	// GET /api/admin/export.csv
	adminExport, _ := r.NewOperationContext(http.MethodGet, "/api/admin/export.csv")
	adminExport.SetSummary("Export results")
	adminExport.SetDescription("CSV of the draw log in draw order. Requires admin_session cookie.")
	adminExport.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("text/csv"))
	adminExport.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminExport)

	// POST /api/admin/reset
	adminReset, _ := r.NewOperationContext(http.MethodPost, "/api/admin/reset")
	adminReset.SetSummary("Reset session")
	adminReset.SetDescription(`Starts a fresh session. Needs the reset PIN and the word "RESET". Requires admin_session cookie.`)
	adminReset.AddReqStructure(ResetRequest{})
	adminReset.AddRespStructure(luckydraw.GameState{}, openapi.WithHTTPStatus(http.StatusOK))
	adminReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	adminReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	adminReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminReset)

	return r.Spec
}

// HealthStatus documents one entry of the /healthz response.
type HealthStatus struct {
	Status string `json:"status"`
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
