package replay

import (
	"log"
	"sync"
	"time"

	"myohub/internal/band"
)

// Recorder tees band frames into a session log on their way to the next
// sink. EMG samples are re-paired into the 16-byte wire batches, so a
// recorded session replays byte-identical to the live stream.
type Recorder struct {
	next band.Sink

	mu         sync.Mutex
	w          *Writer
	pendingEMG *band.EMGFrame
	now        func() time.Time
}

func NewRecorder(path string, next band.Sink) (*Recorder, error) {
	w, err := CreateWriter(path)
	if err != nil {
		return nil, err
	}
	return &Recorder{next: next, w: w, now: time.Now}, nil
}

func (r *Recorder) HandleIMU(f band.IMUFrame) {
	r.mu.Lock()
	if r.w != nil {
		if err := r.w.WriteFrame(r.now(), band.FrameIMU(f)); err != nil {
			r.stopLocked("imu", err)
		}
	}
	r.mu.Unlock()
	if r.next != nil {
		r.next.HandleIMU(f)
	}
}

func (r *Recorder) HandleEMG(f band.EMGFrame) {
	r.mu.Lock()
	if r.w != nil {
		if r.pendingEMG == nil {
			p := f
			r.pendingEMG = &p
		} else {
			first := *r.pendingEMG
			r.pendingEMG = nil
			if err := r.w.WriteFrame(r.now(), band.FrameEMG(first, f)); err != nil {
				r.stopLocked("emg", err)
			}
		}
	}
	r.mu.Unlock()
	if r.next != nil {
		r.next.HandleEMG(f)
	}
}

func (r *Recorder) stopLocked(what string, err error) {
	log.Printf("replay: record %s: %v; recording stopped", what, err)
	_ = r.w.Close()
	r.w = nil
}

// Close flushes and closes the log. A dangling unpaired EMG sample is
// dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	w := r.w
	r.w = nil
	return w.Close()
}
