package api

import (
	"io"
	"net/url"
	"sort"
	"strconv"

	"github.com/wavesentry/wavesentry/pkg/registry"
	"github.com/wavesentry/wavesentry/pkg/serializer"
	"github.com/wavesentry/wavesentry/pkg/tracker"
	"github.com/wavesentry/wavesentry/pkg/worker"
)

// ServePost is the production phase for POST requests. The body carries a
// structured command: an optional summary vector, an optional wrapper key,
// an optional regex filter, and in datatable mode the paging, sorting, and
// search parameters from the form.
func (h *Handler) ServePost(path string, form url.Values, sessionToken string, w io.Writer) error {
	tokens := tokenizePath(path)
	if len(tokens) < 3 || tokens[0] != "devices" {
		return invalidRequest()
	}

	cmd, err := ParseCommand(form)
	if err != nil {
		return badRequest(err.Error())
	}

	switch tokens[1] {
	case "summary":
		if len(tokens) != 3 {
			return invalidRequest()
		}

		return h.serveSummary(serializer.Suffix(tokens[2]), cmd, form, w)

	case "last-time":
		if len(tokens) < 4 {
			return invalidRequest()
		}

		return h.servePostLastTime(tokens, cmd, w)

	case "by-mac":
		if len(tokens) < 4 {
			return invalidRequest()
		}

		return h.servePostByMAC(tokens, cmd, w)

	case "by-key":
		if len(tokens) < 4 {
			return invalidRequest()
		}

		return h.servePostByKey(tokens, cmd, sessionToken, w)
	}

	return invalidRequest()
}

// parseSummaryVector pulls the optional "fields" list out of a command.
func (h *Handler) parseSummaryVector(cmd *Command) ([]*tracker.Summary, error) {
	fields, ok := cmd.ArrayKey("fields")
	if !ok {
		return nil, nil
	}

	summary, err := tracker.ParseSummaryList(h.schema.Registry(), fields)
	if err != nil {
		return nil, badRequest(err.Error())
	}

	return summary, nil
}

// serveSummary runs the query planner: filter, sort, paginate, summarize,
// wrap. Filtering and sorting read fields lock-free; record locks are taken
// one at a time during summarization and held until the response bytes are
// written.
func (h *Handler) serveSummary(suffix string, cmd *Command, form url.Values, w io.Writer) error {
	summary, err := h.parseSummaryVector(cmd)
	if err != nil {
		return err
	}

	datatable := cmd.BoolKey("datatable", false)

	var st *tableState
	if datatable {
		st = parseTableState(form, summary)
	}

	var candidates []*registry.Device

	switch {
	case cmd.HasKey("regex"):
		spec, ok := cmd.ArrayKey("regex")
		if !ok {
			return badRequest("expected regex filter array")
		}

		rw, rErr := worker.NewRegexWorker(h.schema.Registry(), spec)
		if rErr != nil {
			return badRequest(rErr.Error())
		}

		candidates = worker.MatchAll(h.store, rw)

	case datatable && st.search != "":
		sw := worker.NewStringMatchWorker(st.search, st.searchPaths)
		candidates = worker.MatchAll(h.store, sw)

	default:
		candidates = h.store.Scan()
	}

	if datatable {
		st.total = h.store.Len()
		st.filtered = len(candidates)
	}

	if datatable && st.orderPath != nil {
		ascending := st.ascending
		orderPath := st.orderPath

		sort.SliceStable(candidates, func(i, j int) bool {
			cmp := candidates[i].Field(orderPath).Compare(candidates[j].Field(orderPath))
			if ascending {
				return cmp < 0
			}

			return cmp > 0
		})
	}

	if datatable {
		start, end := st.pageBounds(len(candidates))
		candidates = candidates[start:end]
	}

	renames := tracker.RenameMap{}
	outdevs := h.schema.NewDeviceList()

	guard := &registry.LockGuard{}
	defer guard.UnlockAll()

	for _, d := range candidates {
		guard.Lock(d)

		summarized, sErr := tracker.Summarize(d.Root(), summary, renames)
		if sErr != nil {
			return sErr
		}

		if err = outdevs.Append(summarized); err != nil {
			return err
		}
	}

	out, err := h.wrapCollection(outdevs, cmd, st)
	if err != nil {
		return err
	}

	return h.codecs.Serialize(suffix, w, out, renames)
}

// wrapCollection applies the response envelope: datatable mode always wraps
// in a data/draw/recordsTotal/recordsFiltered object; otherwise an explicit
// wrapper key wraps the collection, or the collection stands alone.
func (h *Handler) wrapCollection(outdevs *tracker.Element, cmd *Command, st *tableState) (*tracker.Element, error) {
	if st != nil {
		return h.wrapDatatable(outdevs, st)
	}

	if wrapper := cmd.StringKey("wrapper", ""); wrapper != "" {
		outdevs.SetLocalName(wrapper)

		out := tracker.NewMap()
		if err := out.Insert(outdevs); err != nil {
			return nil, err
		}

		return out, nil
	}

	return outdevs, nil
}

func (h *Handler) wrapDatatable(outdevs *tracker.Element, st *tableState) (*tracker.Element, error) {
	reg := h.schema.Registry()

	out := tracker.NewMap()

	outdevs.SetLocalName("data")
	if err := out.Insert(outdevs); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		id   int
		name string
		val  uint64
	}{
		{h.dtDrawID, "draw", uint64(st.draw)},
		{h.dtTotalID, "recordsTotal", uint64(st.total)},
		{h.dtFilteredID, "recordsFiltered", uint64(st.filtered)},
	} {
		el, err := reg.NewElement(f.id)
		if err != nil {
			return nil, err
		}

		if err = el.SetUInt(f.val); err != nil {
			return nil, err
		}

		el.SetLocalName(f.name)

		if err = out.Insert(el); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (h *Handler) servePostLastTime(tokens []string, cmd *Command, w io.Writer) error {
	ts, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return badRequest("unresolvable timestamp")
	}

	summary, err := h.parseSummaryVector(cmd)
	if err != nil {
		return err
	}

	candidates := worker.MatchAll(h.store, worker.NewLastTimeWorker(ts, h.now))

	if cmd.HasKey("regex") {
		spec, ok := cmd.ArrayKey("regex")
		if !ok {
			return badRequest("expected regex filter array")
		}

		rw, rErr := worker.NewRegexWorker(h.schema.Registry(), spec)
		if rErr != nil {
			return badRequest(rErr.Error())
		}

		candidates = worker.MatchOn(candidates, rw)
	}

	renames := tracker.RenameMap{}
	outdevs := h.schema.NewDeviceList()

	guard := &registry.LockGuard{}
	defer guard.UnlockAll()

	for _, d := range candidates {
		guard.Lock(d)

		summarized, sErr := tracker.Summarize(d.Root(), summary, renames)
		if sErr != nil {
			return sErr
		}

		if err = outdevs.Append(summarized); err != nil {
			return err
		}
	}

	return h.codecs.Serialize(serializer.Suffix(tokens[3]), w, outdevs, renames)
}

func (h *Handler) servePostByMAC(tokens []string, cmd *Command, w io.Writer) error {
	mac, err := tracker.ParseMAC(tokens[2])
	if err != nil {
		return badRequest("unparseable MAC address")
	}

	devs := h.store.FindByMAC(mac)
	if len(devs) == 0 {
		return invalidRequest()
	}

	summary, err := h.parseSummaryVector(cmd)
	if err != nil {
		return err
	}

	renames := tracker.RenameMap{}
	outdevs := h.schema.NewDeviceList()

	guard := &registry.LockGuard{}
	defer guard.UnlockAll()

	for _, d := range devs {
		guard.Lock(d)

		summarized, sErr := tracker.Summarize(d.Root(), summary, renames)
		if sErr != nil {
			return sErr
		}

		if err = outdevs.Append(summarized); err != nil {
			return err
		}
	}

	return h.codecs.Serialize(serializer.Suffix(tokens[3]), w, outdevs, renames)
}

func (h *Handler) servePostByKey(tokens []string, cmd *Command, sessionToken string, w io.Writer) error {
	key, err := tracker.ParseDeviceKey(tokens[2])
	if err != nil {
		return badRequest("unparseable device key")
	}

	d, ok := h.store.FindByKey(key)
	if !ok {
		return invalidRequest()
	}

	switch serializer.StripSuffix(tokens[3]) {
	case "device":
		summary, sErr := h.parseSummaryVector(cmd)
		if sErr != nil {
			return sErr
		}

		renames := tracker.RenameMap{}

		d.Lock()
		defer d.Unlock()

		summarized, sumErr := tracker.Summarize(d.Root(), summary, renames)
		if sumErr != nil {
			return sumErr
		}

		return h.codecs.Serialize(serializer.Suffix(tokens[3]), w, summarized, renames)

	case "set_name":
		if !h.auth.ValidateSession(sessionToken) {
			h.log.Warn().Str("key", key.String()).Msg("rejected rename without valid session")
			return nil
		}

		name := cmd.StringKey("name", "")
		if name == "" {
			return badRequest("expected new device name")
		}

		if err = d.SetName(name); err != nil {
			return err
		}

		_, err = io.WriteString(w, "OK")

		return err
	}

	return invalidRequest()
}
