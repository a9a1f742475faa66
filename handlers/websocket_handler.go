package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/clanwars/battles/brackets"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Виджеты расписания встраиваются на сторонние клановые сайты,
		// поэтому Origin не ограничиваем.
		return true
	},
}

type WebSocketHandler struct {
	hub *brackets.Hub
}

func NewWebSocketHandler(hub *brackets.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func clanRoomID(tag string) string {
	return "clan_" + strings.ToUpper(tag)
}

// ServeWs подписывает соединение на обновления расписания клана.
// Клиент подключается к /ws/clans/{clanTag}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	clanTag := chi.URLParam(r, "clanTag")
	if clanTag == "" {
		http.Error(w, "Missing clanTag", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection for clan %s: %v", clanTag, err)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: clanRoomID(clanTag),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
