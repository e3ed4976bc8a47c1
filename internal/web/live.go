package web

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"myohub/internal/events"
)

var upgrader = websocket.Upgrader{
	// The UI is served same-origin; permissive checking also lets LAN
	// tools watch the feed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveHandler streams bus events over a websocket, one JSON message per
// event. The connection drops on the first write error.
func liveHandler(bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bus == nil {
			http.Error(w, "event feed unavailable", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		ch, cancel := bus.Subscribe(16)
		defer cancel()

		// Reads are discarded; the pump exists to notice the client
		// going away while the feed is quiet.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					log.Printf("web: websocket write: %v", err)
					return
				}
			}
		}
	}
}
