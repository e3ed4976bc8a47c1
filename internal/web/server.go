package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"myohub/internal/events"
)

//go:embed assets/*
var embeddedAssets embed.FS

// Handler builds the daemon's HTTP surface: the status and event APIs,
// the live websocket feed, the trail chart, and the embedded UI.
func Handler(status *Status, hist *events.History, bus *events.Bus, logs *LogRing) http.Handler {
	mux := http.NewServeMux()

	assetsFS, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		// Should never happen; keep the server functional with API only.
		assetsFS = nil
	}

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit := 50
		if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 10000 {
				http.Error(w, "limit must be an integer in [1,10000]", http.StatusBadRequest)
				return
			}
			limit = v
		}

		evs := hist.Recent(limit)
		writeJSON(w, EventsResponse{
			NowUTC: time.Now().UTC().Format(time.RFC3339Nano),
			Count:  len(evs),
			Events: evs,
		})
	})

	mux.HandleFunc("/api/events/live", liveHandler(bus))
	mux.HandleFunc("/api/trail.png", trailHandler(status))

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/api/about", AboutHandler())

	if assetsFS != nil {
		fileServer := http.FileServer(http.FS(assetsFS))
		mux.Handle("/assets/", http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent stale UI assets during development.
			w.Header().Set("Cache-Control", "no-store")
			fileServer.ServeHTTP(w, r)
		})))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// SPA shell: serve the UI for / and any unknown paths (except
		// /api/* and /assets/*).
		if r.URL.Path != "/" {
			if path.Dir(r.URL.Path) == "/api" || path.Dir(r.URL.Path) == "/assets" {
				http.NotFound(w, r)
				return
			}
		}

		if assetsFS == nil {
			// Fallback minimal page if embedding failed.
			snap := status.Snapshot(time.Now().UTC())
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>myohub</title></head><body>")
			_, _ = fmt.Fprintf(w, "<h1>myohub</h1>")
			_, _ = fmt.Fprintf(w, "<p>Web UI is unavailable. Use <a href=\"/api/status\">/api/status</a>.</p>")
			_, _ = fmt.Fprintf(w, "<pre>transport=%s\nconnected=%v\nlocked=%v\ngestures=%d</pre>",
				snap.Transport, snap.Connected, snap.Engine.Locked, snap.Engine.Gestures,
			)
			_, _ = fmt.Fprintf(w, "</body></html>")
			return
		}

		b, err := fs.ReadFile(assetsFS, "index.html")
		if err != nil {
			http.Error(w, "ui unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})

	return mux
}

type EventsResponse struct {
	NowUTC string         `json:"now_utc"`
	Count  int            `json:"count"`
	Events []events.Event `json:"events"`
}

func Serve(ctx context.Context, listenAddr string, status *Status, hist *events.History, bus *events.Bus, logs *LogRing) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, hist, bus, logs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
