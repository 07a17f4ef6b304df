// Package api exposes the device inventory's query surface: a two-phase
// verify/produce contract over slash-tokenized request paths, the
// datatable query planner, and the serializer dispatch boundary.
package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/wavesentry/wavesentry/pkg/logger"
	"github.com/wavesentry/wavesentry/pkg/registry"
	"github.com/wavesentry/wavesentry/pkg/serializer"
	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// Handler serves the device query endpoints. The transport calls
// VerifyRequest first, cheaply and with at most transient index locks, then
// ServeGet or ServePost to produce the response. The two phases agree on
// validity: a target that verifies but vanishes before production is
// reported as not found, never as an internal failure.
type Handler struct {
	store     *registry.Store
	schema    *registry.BaseSchema
	phySchema *registry.PhySchema
	codecs    *serializer.Registry
	auth      SessionValidator
	log       logger.Logger
	now       func() time.Time

	dtDrawID     int
	dtTotalID    int
	dtFilteredID int
}

// NewHandler wires a query handler over a device store.
func NewHandler(store *registry.Store, schema *registry.BaseSchema, options ...func(*Handler)) *Handler {
	reg := schema.Registry()

	h := &Handler{
		store:     store,
		schema:    schema,
		phySchema: registry.NewPhySchema(reg),
		codecs:    serializer.NewRegistry(),
		auth:      denySessions{},
		log:       logger.NewTestLogger(),
		now:       time.Now,

		dtDrawID:     reg.RegisterField("wavesentry.datatable.draw", tracker.TypeUInt64, "datatable draw counter"),
		dtTotalID:    reg.RegisterField("wavesentry.datatable.records_total", tracker.TypeUInt64, "total records in store"),
		dtFilteredID: reg.RegisterField("wavesentry.datatable.records_filtered", tracker.TypeUInt64, "records after filtering"),
	}

	for _, o := range options {
		o(h)
	}

	return h
}

// WithSessionValidator sets the session check used by write endpoints.
func WithSessionValidator(v SessionValidator) func(*Handler) {
	return func(h *Handler) {
		h.auth = v
	}
}

// WithLogger sets the handler's logger.
func WithLogger(log logger.Logger) func(*Handler) {
	return func(h *Handler) {
		h.log = log
	}
}

// WithClock overrides the clock used to resolve relative timestamps.
func WithClock(now func() time.Time) func(*Handler) {
	return func(h *Handler) {
		h.now = now
	}
}

// Codecs returns the serializer registry, letting callers register
// additional output formats before serving.
func (h *Handler) Codecs() *serializer.Registry { return h.codecs }

// tokenizePath splits a request path on "/", dropping empty tokens.
func tokenizePath(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))

	for _, tok := range raw {
		if tok != "" {
			out = append(out, tok)
		}
	}

	return out
}

// resolveNamePath maps textual field-name segments onto tree ids.
func (h *Handler) resolveNamePath(names []string) ([]int, bool) {
	reg := h.schema.Registry()
	ids := make([]int, 0, len(names))

	for _, name := range names {
		id, ok := reg.FieldID(name)
		if !ok {
			return nil, false
		}

		ids = append(ids, id)
	}

	return ids, true
}

// VerifyRequest is the cheap validation phase: request shape, format
// suffix, and target existence. It takes index locks transiently and never
// acquires a record lock.
func (h *Handler) VerifyRequest(method, path string) bool {
	switch method {
	case "GET":
		return h.verifyGet(path)
	case "POST":
		return h.verifyPost(path)
	default:
		return false
	}
}

func (h *Handler) verifyGet(path string) bool {
	if path == "/devices/all_devices.ekjson" {
		return true
	}

	stripped := serializer.StripSuffix(path)
	if stripped == "/phy/all_phys" || stripped == "/phy/all_phys_dt" {
		return h.codecs.CanSerialize(path)
	}

	tokens := tokenizePath(path)
	if len(tokens) < 2 || tokens[0] != "devices" {
		return false
	}

	switch tokens[1] {
	case "by-key":
		if len(tokens) < 4 {
			return false
		}

		key, err := tracker.ParseDeviceKey(tokens[2])
		if err != nil {
			return false
		}

		if !h.codecs.CanSerialize(tokens[3]) {
			return false
		}

		d, ok := h.store.FindByKey(key)
		if !ok {
			return false
		}

		if serializer.StripSuffix(tokens[3]) != "device" {
			return false
		}

		if len(tokens) > 4 {
			ids, ok := h.resolveNamePath(tokens[4:])
			if !ok {
				return false
			}

			if d.Field(ids) == nil {
				return false
			}
		}

		return true

	case "by-mac":
		if len(tokens) < 4 {
			return false
		}

		if !h.codecs.CanSerialize(tokens[3]) {
			return false
		}

		if serializer.StripSuffix(tokens[3]) != "devices" {
			return false
		}

		mac, err := tracker.ParseMAC(tokens[2])
		if err != nil {
			return false
		}

		return h.store.HasMAC(mac)

	case "last-time":
		if len(tokens) < 4 {
			return false
		}

		if _, err := strconv.ParseInt(tokens[2], 10, 64); err != nil {
			return false
		}

		if serializer.StripSuffix(tokens[3]) != "devices" {
			return false
		}

		// ekjson is an explicit match here; the generic suffix set
		// covers it as well as the aggregate codecs.
		return h.codecs.CanSerialize(tokens[3])
	}

	return false
}

func (h *Handler) verifyPost(path string) bool {
	tokens := tokenizePath(path)
	if len(tokens) < 3 || tokens[0] != "devices" {
		return false
	}

	switch tokens[1] {
	case "summary":
		return h.codecs.CanSerialize(tokens[2])

	case "last-time":
		if len(tokens) < 4 {
			return false
		}

		if _, err := strconv.ParseInt(tokens[2], 10, 64); err != nil {
			return false
		}

		if serializer.StripSuffix(tokens[3]) != "devices" {
			return false
		}

		return h.codecs.CanSerialize(tokens[3])

	case "by-key":
		if len(tokens) < 4 {
			return false
		}

		key, err := tracker.ParseDeviceKey(tokens[2])
		if err != nil {
			return false
		}

		if !h.codecs.CanSerialize(tokens[3]) {
			return false
		}

		if _, ok := h.store.FindByKey(key); !ok {
			return false
		}

		target := serializer.StripSuffix(tokens[3])

		return target == "device" || target == "set_name"

	case "by-mac":
		if len(tokens) < 4 {
			return false
		}

		if !h.codecs.CanSerialize(tokens[3]) {
			return false
		}

		if serializer.StripSuffix(tokens[3]) != "devices" {
			return false
		}

		mac, err := tracker.ParseMAC(tokens[2])
		if err != nil {
			return false
		}

		return h.store.HasMAC(mac)
	}

	return false
}
