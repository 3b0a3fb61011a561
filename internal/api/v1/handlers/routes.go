package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	v1chat "github.com/deepgram/threadgate/internal/api/v1/handlers/chat"
	v1search "github.com/deepgram/threadgate/internal/api/v1/handlers/search"
	v1ws "github.com/deepgram/threadgate/internal/api/v1/handlers/websocket"
	v1mware "github.com/deepgram/threadgate/internal/api/v1/middleware"
	"github.com/deepgram/threadgate/internal/services"
	"github.com/deepgram/threadgate/internal/services/oauth"
)

// RegisterRoutes mounts the health probe, the unversioned /chat routes kept
// for existing clients, and the /v1 API
func RegisterRoutes(router *mux.Router, services *services.Services) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		HandleHealth(services.HasRedis(), w, r)
	}).Methods("GET")

	RegisterLegacyRoutes(router, services)
	RegisterV1Routes(router, services)
}

func RegisterLegacyRoutes(router *mux.Router, services *services.Services) {
	chatLimit := v1mware.RateLimit("chat", services.GetRateLimitCounter())

	legacyRouter := router.NewRoute().Subrouter()
	legacyRouter.Use(v1mware.RequireAuth(), v1mware.RequireScope(oauth.ScopeChatWrite))

	legacyRouter.Handle("/chat", chatLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleChatStream(services.GetStreamService(), w, r)
	}))).Methods("GET", "POST")
	legacyRouter.Handle("/chat/v2", chatLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleChatQuery(services.GetChatService(), w, r)
	}))).Methods("GET")
}

func RegisterV1Routes(router *mux.Router, services *services.Services) {
	v1 := router.PathPrefix("/v1").Subrouter()

	v1protectedRouter := v1.NewRoute().Subrouter()
	v1protectedRouter.Use(v1mware.RequireAuth())

	chatScope := v1mware.RequireScope(oauth.ScopeChatWrite)
	chatLimit := v1mware.RateLimit("chat", services.GetRateLimitCounter())
	v1protectedRouter.Handle("/chat", chatScope(chatLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleChat(services.GetChatService(), w, r)
	})))).Methods("POST")
	v1protectedRouter.Handle("/chat/stream", chatScope(chatLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleChatStream(services.GetStreamService(), w, r)
	})))).Methods("GET", "POST")
	v1protectedRouter.Handle("/chat/ws", chatScope(chatLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1ws.HandleChatWebSocket(services.GetStreamService(), services.GetConnectionManager(), w, r)
	})))).Methods("GET")

	searchScope := v1mware.RequireScope(oauth.ScopeSearchRead)
	searchLimit := v1mware.RateLimit("search", services.GetRateLimitCounter())
	v1protectedRouter.Handle("/search", searchScope(searchLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1search.HandleSearch(services.GetSearchService(), w, r)
	})))).Methods("POST")
}
