package replay

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestReader_ReadAll(t *testing.T) {
	in := strings.NewReader(`
# myohub-session v1 2026-01-01T00:00:00Z

START
0, 0102
10, 0a 0b
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Frame != nil {
		t.Fatalf("expected START marker (nil frame), got %v", recs[0].Frame)
	}
	if recs[1].At != 0 {
		t.Fatalf("expected At=0, got %s", recs[1].At)
	}
	if !reflect.DeepEqual(recs[1].Frame, []byte{0x01, 0x02}) {
		t.Fatalf("unexpected frame 1: %x", recs[1].Frame)
	}
	if recs[2].At != 10*time.Nanosecond {
		t.Fatalf("expected At=10ns, got %s", recs[2].At)
	}
	if !reflect.DeepEqual(recs[2].Frame, []byte{0x0a, 0x0b}) {
		t.Fatalf("unexpected frame 2: %x", recs[2].Frame)
	}
}

func TestReader_InvalidLines(t *testing.T) {
	cases := []string{
		"not-a-valid-line\n",
		"-5,0102\n",
		"10,zz\n",
		"10,\n",
	}
	for _, in := range cases {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestWriter_WritesExpectedFormat(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "session.log")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	w.start = time.Unix(0, 0)

	if err := w.WriteFrame(time.Unix(0, 20), []byte{0x01, 0x02}); err != nil {
		t.Fatalf("WriteFrame() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected line count %d: %q", len(lines), string(b))
	}
	if !strings.HasPrefix(lines[0], "# myohub-session v1 ") {
		t.Fatalf("missing header: %q", lines[0])
	}
	if lines[1] != "START" {
		t.Fatalf("missing START: %q", lines[1])
	}
	if lines[2] != "20,0102" {
		t.Fatalf("unexpected record line: %q", lines[2])
	}
}

func TestWriter_RejectsAfterClose(t *testing.T) {
	tmp := t.TempDir()
	w, err := CreateWriter(filepath.Join(tmp, "closed.log"))
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteFrame(time.Now(), []byte{0x01}); err == nil {
		t.Fatalf("expected error writing after close")
	}
}
