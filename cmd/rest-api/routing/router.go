package routing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golobby/container/v3"
	"github.com/gorilla/mux"

	"github.com/matchcore/core/cmd/rest-api/controllers"
	cmd_controllers "github.com/matchcore/core/cmd/rest-api/controllers/command"
	websocket_controllers "github.com/matchcore/core/cmd/rest-api/controllers/websocket"
	"github.com/matchcore/core/cmd/rest-api/middlewares"
	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/infra/metrics"
	socket "github.com/matchcore/core/pkg/infra/websocket"
)

const (
	Health    string = "/health"
	Readiness string = "/health/ready"
	Liveness  string = "/health/live"

	MatchRequests       string = "/api/matchmaking/requests"
	MatchRequestByID     string = "/api/matchmaking/requests/{requestId}"
	CurrentMatchRequest  string = "/api/matchmaking/requests/current"
	MatchHistory         string = "/api/matchmaking/history"

	Lobbies             string = "/api/lobbies"
	LobbyByID           string = "/api/lobbies/{lobby_id}"
	LobbyMembers        string = "/api/lobbies/{lobby_id}/members"
	LobbyMembershipSelf string = "/api/lobbies/{lobby_id}/members/me"
	LobbyReady          string = "/api/lobbies/{lobby_id}/members/me/ready"
	LobbyMessages       string = "/api/lobbies/{lobby_id}/messages"

	LobbySocket string = "/ws/lobby/{lobby_id}"
)

// NewRouter wires every HTTP and WebSocket route onto a mux.Router, in the
// same middleware order as the teacher's rest-api: error translation first
// so every later layer can report through common.SetError, then CORS, then
// auth (which records a verified user id, if any, without rejecting
// unauthenticated requests outright), then rate limiting.
func NewRouter(ctx context.Context, c container.Container) http.Handler {
	var config common.Config
	if err := c.Resolve(&config); err != nil {
		slog.ErrorContext(ctx, "failed to resolve common.Config", "error", err)
	}

	healthController := controllers.NewHealthController(c)
	matchmakingController := cmd_controllers.NewMatchmakingController(c)
	lobbyController := cmd_controllers.NewLobbyController(c)

	var hub *socket.SocketHub
	if err := c.Resolve(&hub); err != nil {
		slog.ErrorContext(ctx, "failed to resolve *socket.SocketHub", "error", err)
	}
	lobbyWebSocketHandler := websocket_controllers.NewLobbyWebSocketHandler(c, hub, socket.AuthConfig{
		Secret:   config.JWT.Secret,
		Issuer:   config.JWT.Issuer,
		Audience: config.JWT.Audience,
	})

	authMiddleware := middlewares.NewAuthMiddleware(config.JWT)
	corsMiddleware := middlewares.NewCORSMiddleware()
	rateLimitMiddleware := middlewares.NewRateLimitMiddleware()

	r := mux.NewRouter()

	r.Use(middlewares.ErrorMiddleware)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware.Handler)
	r.Use(authMiddleware.Handler)
	r.Use(rateLimitMiddleware.Handler)

	// health
	r.HandleFunc(Health, healthController.HealthCheck(ctx)).Methods("GET")
	r.HandleFunc(Readiness, healthController.ReadinessCheck(ctx)).Methods("GET")
	r.HandleFunc(Liveness, healthController.LivenessCheck(ctx)).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Matchmaking API
	r.Handle(MatchRequests, middlewares.RequireAuthentication()(http.HandlerFunc(matchmakingController.SubmitMatchRequestHandler(ctx)))).Methods("POST")
	r.Handle(MatchRequestByID, middlewares.RequireAuthentication()(http.HandlerFunc(matchmakingController.CancelMatchRequestHandler(ctx)))).Methods("DELETE")
	r.Handle(CurrentMatchRequest, middlewares.RequireAuthentication()(http.HandlerFunc(matchmakingController.GetCurrentMatchRequestHandler(ctx)))).Methods("GET")
	r.Handle(MatchHistory, middlewares.RequireAuthentication()(http.HandlerFunc(matchmakingController.GetMatchHistoryHandler(ctx)))).Methods("GET")

	// Lobby API
	r.Handle(Lobbies, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.GetUserLobbiesHandler(ctx)))).Methods("GET")
	r.Handle(LobbyByID, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.GetLobbyHandler(ctx)))).Methods("GET")
	r.Handle(LobbyByID, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.CloseLobbyHandler(ctx)))).Methods("DELETE")
	r.Handle(LobbyMembers, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.JoinLobbyHandler(ctx)))).Methods("POST")
	r.Handle(LobbyMembershipSelf, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.LeaveLobbyHandler(ctx)))).Methods("DELETE")
	r.Handle(LobbyReady, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.SetMemberReadyHandler(ctx)))).Methods("PUT")
	r.Handle(LobbyMessages, middlewares.RequireAuthentication()(http.HandlerFunc(lobbyController.SendChatMessageHandler(ctx)))).Methods("POST")

	// WebSocket for real-time lobby and queue updates
	r.HandleFunc(LobbySocket, lobbyWebSocketHandler.UpgradeConnection(ctx)).Methods("GET")

	return r
}
