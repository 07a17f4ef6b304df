package worker

import (
	"time"

	"github.com/wavesentry/wavesentry/pkg/registry"
)

// LastTimeWorker selects devices seen after a cutoff. A negative cutoff is
// relative: "now plus cutoff" (so -50 means "within the last 50 seconds").
type LastTimeWorker struct {
	cutoff int64
}

// NewLastTimeWorker resolves the cutoff against the supplied clock; a nil
// clock uses time.Now.
func NewLastTimeWorker(cutoff int64, now func() time.Time) *LastTimeWorker {
	if cutoff < 0 {
		if now == nil {
			now = time.Now
		}

		cutoff += now().Unix()
	}

	return &LastTimeWorker{cutoff: cutoff}
}

func (w *LastTimeWorker) Match(d *registry.Device) (bool, bool) {
	return d.LastTime() > w.cutoff, false
}
