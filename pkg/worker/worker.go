// Package worker provides the filter engines applied over device scans.
// Workers run lock-free over a scan snapshot; record locks are taken later,
// only when a record has been selected for output.
package worker

import (
	"github.com/wavesentry/wavesentry/pkg/registry"
)

// Worker examines one device record. It reports whether the record matches
// and whether the scan should stop after this record.
type Worker interface {
	Match(d *registry.Device) (matched, stop bool)
}

// FuncWorker adapts a closure to the Worker interface.
type FuncWorker struct {
	Fn func(d *registry.Device) (matched, stop bool)
}

func (w *FuncWorker) Match(d *registry.Device) (bool, bool) {
	return w.Fn(d)
}

// MatchAll runs a worker over a full store scan.
func MatchAll(s *registry.Store, w Worker) []*registry.Device {
	return MatchOn(s.Scan(), w)
}

// MatchOn runs a worker over a candidate sequence, typically the survivors
// of a previous worker. Output order preserves candidate order.
func MatchOn(candidates []*registry.Device, w Worker) []*registry.Device {
	var out []*registry.Device

	for _, d := range candidates {
		matched, stop := w.Match(d)
		if matched {
			out = append(out, d)
		}

		if stop {
			break
		}
	}

	return out
}
