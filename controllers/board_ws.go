package controller

import (
	"sync"

	"github.com/gofiber/websocket/v2"
)

// BoardEvent tells connected boards that pipeline state changed and they
// should refetch. Payloads stay minimal; the authoritative state is always
// the store.
type BoardEvent struct {
	Action  string `json:"action"`
	LeadID  string `json:"lead_id,omitempty"`
	StageID string `json:"stage_id,omitempty"`
}

var (
	wsMutex   sync.Mutex
	wsClients = make(map[string]map[*websocket.Conn]bool) // tenant id -> conns
)

// BroadcastBoardEvent pushes an event to every board connected for the
// tenant. Dead connections are dropped on write failure.
func BroadcastBoardEvent(tenantID string, event BoardEvent) {
	wsMutex.Lock()
	defer wsMutex.Unlock()
	for conn := range wsClients[tenantID] {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(wsClients[tenantID], conn)
		}
	}
}

// BoardWebSocket keeps a connection subscribed to the tenant's board events
// until the client goes away. The tenant is resolved by the auth middleware
// before the upgrade.
func BoardWebSocket() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		tenantID, ok := conn.Locals("tenant_id").(string)
		if !ok || tenantID == "" {
			conn.Close()
			return
		}

		wsMutex.Lock()
		if wsClients[tenantID] == nil {
			wsClients[tenantID] = make(map[*websocket.Conn]bool)
		}
		wsClients[tenantID][conn] = true
		wsMutex.Unlock()

		defer func() {
			wsMutex.Lock()
			delete(wsClients[tenantID], conn)
			wsMutex.Unlock()
			conn.Close()
		}()

		// Drain client frames; the server side is broadcast-only
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
