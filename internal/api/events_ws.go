package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket transport for route events. Clients open a connection, send
// connection_init, then subscribe with {"routeId": "..."} payloads and
// receive next/complete frames per subscription.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
	RouteID string `json:"routeId"`
}

// RouteEventsWSHandler handles /v1/route-events/ws
func (s *Server) RouteEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		routeID string
		ch      chan SSEEvent
	}
	subs := map[string]sub{}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// Serialize writes: the keepalive and fanout goroutines share the conn.
	writeMu := make(chan struct{}, 1)
	write := func(v any) error {
		writeMu <- struct{}{}
		defer func() { <-writeMu }()
		return conn.WriteJSON(v)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := write(wsMessage{Type: "ping"}); err != nil {
						return
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl wsSubscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			if pl.RouteID == "" {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"routeId required"}`)})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			// RBAC: dispatcher/admin, or the technician assigned to the route
			pr := s.getPrincipal(r)
			if !pr.CanDispatch() {
				_, tenant := s.withTenant(r)
				rt, err := s.Store.GetRoute(r.Context(), tenant, pl.RouteID)
				if err != nil || pr.Role != "technician" || pr.TechnicianID == "" || pr.TechnicianID != rt.TechnicianID {
					_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"forbidden"}`)})
					_ = write(wsMessage{Type: "complete", ID: msg.ID})
					continue
				}
			}
			ch := s.Broker.Subscribe(pl.RouteID)
			subs[msg.ID] = sub{routeID: pl.RouteID, ch: ch}
			go func(id string, c chan SSEEvent) {
				for evt := range c {
					payload, _ := json.Marshal(map[string]any{"event": evt.Type, "data": evt.Data})
					if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
						return
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.routeID, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.routeID, s0.ch)
		delete(subs, id)
	}
}
