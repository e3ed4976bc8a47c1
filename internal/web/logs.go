package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogRing collects daemon log output for /api/logs. It implements
// io.Writer so it can sit behind log.SetOutput via io.MultiWriter.
type LogRing struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial []byte
	dropped uint64
}

func NewLogRing(maxLines int) *LogRing {
	if maxLines <= 0 {
		maxLines = 1000
	}
	return &LogRing{max: maxLines}
}

// Write splits p into lines, buffering a trailing fragment until its
// newline arrives.
func (r *LogRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial = append(r.partial, p...)
	for {
		i := bytes.IndexByte(r.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(r.partial[:i]), "\r")
		r.partial = r.partial[i+1:]
		if line == "" {
			continue
		}
		r.lines = append(r.lines, line)
		if over := len(r.lines) - r.max; over > 0 {
			r.lines = append(r.lines[:0], r.lines[over:]...)
			r.dropped += uint64(over)
		}
	}
	return len(p), nil
}

// Tail returns the most recent n lines in arrival order, plus how many
// lines have fallen off the ring since start.
func (r *LogRing) Tail(n int) (lines []string, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped = r.dropped
	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	lines = append([]string(nil), r.lines[len(r.lines)-n:]...)
	return lines, dropped
}

type LogsResponse struct {
	NowUTC  string   `json:"now_utc"`
	Dropped uint64   `json:"dropped"`
	Lines   []string `json:"lines"`
}

func (r *LogRing) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		tail := 200
		if s := strings.TrimSpace(req.URL.Query().Get("tail")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}

		lines, dropped := r.Tail(tail)
		writeJSON(w, LogsResponse{
			NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
			Dropped: dropped,
			Lines:   lines,
		})
	})
}

// writeJSON emits indented JSON with a trailing newline, the shape every
// API endpoint here shares.
func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
