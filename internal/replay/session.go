// Package replay records and replays band sessions. The log is
// line-oriented text:
//
//   - Blank lines ignored.
//   - Lines starting with '#' ignored (the writer emits a version header).
//   - Line "START" resets the origin (next record time is relative to 0).
//   - Data lines are: <t_ns>,<hex>
//     where t_ns is nanoseconds since START and hex is one framed band
//     message.
//
// Deterministic session logs double as protocol regression fixtures.
package replay

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

type Record struct {
	At    time.Duration
	Frame []byte
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	// Allow reasonably large frames.
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{At: 0, Frame: nil})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("replay: invalid line (missing comma): %q", line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		hexStr := strings.TrimSpace(line[comma+1:])
		if tsStr == "" || hexStr == "" {
			return nil, fmt.Errorf("replay: invalid line (empty field): %q", line)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("replay: invalid timestamp %q: %w", tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("replay: invalid timestamp (negative): %d", tsNs)
		}

		hexStr = strings.ReplaceAll(hexStr, " ", "")
		b, err := hex.DecodeString(hexStr)
		if err != nil {
			return nil, fmt.Errorf("replay: invalid hex payload: %w", err)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("replay: empty payload")
		}

		recs = append(recs, Record{At: time.Duration(tsNs), Frame: b})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReadSessionFile loads a whole session log.
func ReadSessionFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

type Writer struct {
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	header := fmt.Sprintf("# myohub-session v1 %s\nSTART\n", time.Now().UTC().Format(time.RFC3339))
	if _, err := bw.WriteString(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (ww *Writer) WriteFrame(now time.Time, frame []byte) error {
	if ww.closed {
		return errors.New("replay: writer is closed")
	}
	if len(frame) == 0 {
		return errors.New("replay: frame is empty")
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	if _, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(frame)); err != nil {
		return err
	}
	return nil
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}
