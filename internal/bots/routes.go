package bots

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the channel service endpoint on the given router.
func RegisterRoutes(r chi.Router, activities *ActivityHandler) {
	r.Post("/api/messages", activities.HandleActivity)
}

// RegisterChatRoutes mounts the websocket chat channel. Its connections are
// long lived, so r must not impose a request timeout.
func RegisterChatRoutes(r chi.Router, chat *ChatHandler) {
	r.Get("/api/chat/ws", chat.HandleWebSocket)
}
