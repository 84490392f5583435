// Package main runs a demo WebSocket client for route events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func post(base, path string, body []byte) (*http.Response, error) {
	req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	return http.DefaultClient.Do(req)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed a job and a technician, then plan routes
	jobs := []byte(`{"tenantId":"t_demo","jobs":[
		{"customerName":"Demo Customer","location":{"lat":33.4934,"lng":-112.07},"durationMin":45}
	]}`)
	if resp, err := post(base, "/v1/jobs", jobs); err != nil {
		log.Fatal(err)
	} else {
		_ = resp.Body.Close()
	}
	techs := []byte(`{"tenantId":"t_demo","technicians":[
		{"name":"Demo Tech","startLocation":{"lat":33.45,"lng":-112.07},"workingHours":{"start":"08:00","end":"17:00"}}
	]}`)
	if resp, err := post(base, "/v1/technicians", techs); err != nil {
		log.Fatal(err)
	} else {
		_ = resp.Body.Close()
	}

	planDate := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	resp, err := post(base, "/v1/optimize", []byte(`{"tenantId":"t_demo","planDate":"`+planDate+`"}`))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var optResp struct {
		Routes []struct {
			ID string `json:"id"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&optResp); err != nil {
		log.Fatal(err)
	}
	if len(optResp.Routes) == 0 {
		log.Fatal("no routes returned")
	}
	routeID := optResp.Routes[0].ID
	log.Printf("Route ID: %s", routeID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/route-events/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"routeId": routeID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger a route event by dispatching the route
	time.Sleep(500 * time.Millisecond)
	patch, _ := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/v1/routes/%s", base, routeID), bytes.NewReader([]byte(`{"status":"dispatched"}`)))
	patch.Header.Set("Content-Type", "application/json")
	patch.Header.Set("X-Tenant-Id", "t_demo")
	patch.Header.Set("X-Role", "admin")
	_, _ = http.DefaultClient.Do(patch)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
