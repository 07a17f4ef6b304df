package api

import (
	"io"
	"strconv"

	"github.com/wavesentry/wavesentry/pkg/registry"
	"github.com/wavesentry/wavesentry/pkg/serializer"
	"github.com/wavesentry/wavesentry/pkg/tracker"
	"github.com/wavesentry/wavesentry/pkg/worker"
)

// ServeGet is the production phase for GET requests. The path has already
// passed VerifyRequest; a target that vanished since then is reported as an
// invalid request, indistinguishable from one that never existed.
func (h *Handler) ServeGet(path string, w io.Writer) error {
	if path == "/devices/all_devices.ekjson" {
		return h.exportAllDevices(w)
	}

	switch serializer.StripSuffix(path) {
	case "/phy/all_phys":
		return h.servePhys(serializer.Suffix(path), w, "")
	case "/phy/all_phys_dt":
		return h.servePhys(serializer.Suffix(path), w, "aaData")
	}

	tokens := tokenizePath(path)
	if len(tokens) < 4 || tokens[0] != "devices" {
		return invalidRequest()
	}

	switch tokens[1] {
	case "by-key":
		return h.serveGetByKey(tokens, w)
	case "by-mac":
		return h.serveGetByMAC(tokens, w)
	case "last-time":
		return h.serveGetLastTime(tokens, w)
	}

	return invalidRequest()
}

// exportAllDevices streams the full inventory as newline-delimited JSON,
// one complete record per line. Each record lock is held only while that
// record's line is written.
func (h *Handler) exportAllDevices(w io.Writer) error {
	for _, d := range h.store.Scan() {
		d.Lock()
		err := h.codecs.Serialize("ekjson", w, d.Root(), nil)
		d.Unlock()

		if err != nil {
			return err
		}
	}

	return nil
}

// servePhys enumerates the registered phy handlers, prefixed with the
// synthetic "any" entry. A non-empty wrapper key wraps the vector in a
// single-key map for datatable consumers.
func (h *Handler) servePhys(suffix string, w io.Writer, wrapper string) error {
	list, err := h.schema.Registry().NewElement(h.phySchema.ListID)
	if err != nil {
		return err
	}

	anyEl, err := h.phySchema.Element(registry.PhyIDAny, "ANY", 0)
	if err != nil {
		return err
	}

	if err = list.Append(anyEl); err != nil {
		return err
	}

	for _, p := range h.store.Phys() {
		entry, elErr := h.phySchema.Element(int64(p.ID), p.Name, p.Packets())
		if elErr != nil {
			return elErr
		}

		if err = list.Append(entry); err != nil {
			return err
		}
	}

	out := list

	if wrapper != "" {
		list.SetLocalName(wrapper)

		out = tracker.NewMap()
		if err = out.Insert(list); err != nil {
			return err
		}
	}

	return h.codecs.Serialize(suffix, w, out, nil)
}

func (h *Handler) serveGetByKey(tokens []string, w io.Writer) error {
	key, err := tracker.ParseDeviceKey(tokens[2])
	if err != nil {
		return badRequest("unparseable device key")
	}

	if serializer.StripSuffix(tokens[3]) != "device" {
		return invalidRequest()
	}

	d, ok := h.store.FindByKey(key)
	if !ok {
		return invalidRequest()
	}

	d.Lock()
	defer d.Unlock()

	el := d.Root()

	if len(tokens) > 4 {
		ids, ok := h.resolveNamePath(tokens[4:])
		if !ok {
			return invalidRequest()
		}

		if el = d.Root().ChildPath(ids); el == nil {
			return invalidRequest()
		}
	}

	return h.codecs.Serialize(serializer.Suffix(tokens[3]), w, el, nil)
}

func (h *Handler) serveGetByMAC(tokens []string, w io.Writer) error {
	mac, err := tracker.ParseMAC(tokens[2])
	if err != nil {
		return badRequest("unparseable MAC address")
	}

	list := h.schema.NewDeviceList()

	guard := &registry.LockGuard{}
	defer guard.UnlockAll()

	for _, d := range h.store.FindByMAC(mac) {
		guard.Lock(d)

		if err = list.Append(d.Root()); err != nil {
			return err
		}
	}

	return h.codecs.Serialize(serializer.Suffix(tokens[3]), w, list, nil)
}

func (h *Handler) serveGetLastTime(tokens []string, w io.Writer) error {
	ts, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return badRequest("unresolvable timestamp")
	}

	matched := worker.MatchAll(h.store, worker.NewLastTimeWorker(ts, h.now))

	list := h.schema.NewDeviceList()

	guard := &registry.LockGuard{}
	defer guard.UnlockAll()

	for _, d := range matched {
		guard.Lock(d)

		if err = list.Append(d.Root()); err != nil {
			return err
		}
	}

	return h.codecs.Serialize(serializer.Suffix(tokens[3]), w, list, nil)
}
