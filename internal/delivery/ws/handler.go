package ws

import (
	"log"
	"net/http"
)

// ProgressHandler upgrades GET /ws/progress?file=<filename> and streams
// progress events for that file until the client disconnects. Events are
// produced by the transcribe workers and routed through the hub.
func ProgressHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("file")
		if filename == "" {
			http.Error(w, "missing file parameter", http.StatusBadRequest)
			return
		}

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "ws upgrade failed", http.StatusBadRequest)
			return
		}

		hub.Register(filename, conn)
		defer hub.Unregister(filename, conn)

		// Reads are only used to notice the close; clients are not expected
		// to send anything.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Printf("[ws] close file=%s", filename)
				return
			}
		}
	}
}
