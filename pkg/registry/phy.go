package registry

import (
	"sync/atomic"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// PhyIDAny is the synthetic phy entry representing "all phys" in handler
// enumerations. It never appears in a device key.
const PhyIDAny = int64(-1)

// PhyHandler describes one registered physical-layer handler. The capture
// pipeline registers its handlers at startup and bumps the packet counter
// as it decodes; the query core only enumerates them.
type PhyHandler struct {
	ID   uint32
	Name string

	packets atomic.Uint64
}

// AddPackets credits decoded packets to this phy.
func (p *PhyHandler) AddPackets(n uint64) { p.packets.Add(n) }

// Packets returns the decoded packet count.
func (p *PhyHandler) Packets() uint64 { return p.packets.Load() }

// PhySchema holds the resolved field ids for phy enumeration output.
type PhySchema struct {
	reg *tracker.Registry

	PhyID   int
	NameID  int
	PktsID  int
	ListID  int
	EntryID int
}

// NewPhySchema registers the phy enumeration fields.
func NewPhySchema(reg *tracker.Registry) *PhySchema {
	return &PhySchema{
		reg: reg,

		PhyID:   reg.RegisterField("wavesentry.phy.id", tracker.TypeInt64, "phy handler id"),
		NameID:  reg.RegisterField("wavesentry.phy.name", tracker.TypeString, "phy handler name"),
		PktsID:  reg.RegisterField("wavesentry.phy.packets", tracker.TypeUInt64, "packets decoded by phy"),
		ListID:  reg.RegisterField("wavesentry.phy.list", tracker.TypeVector, "list of phy handlers"),
		EntryID: reg.RegisterField("wavesentry.phy.entry", tracker.TypeMap, "phy handler entry"),
	}
}

// Element renders one phy handler entry.
func (ps *PhySchema) Element(id int64, name string, packets uint64) (*tracker.Element, error) {
	entry, err := ps.reg.NewElement(ps.EntryID)
	if err != nil {
		return nil, err
	}

	idEl, err := ps.reg.NewElement(ps.PhyID)
	if err != nil {
		return nil, err
	}

	if err = idEl.SetInt(id); err != nil {
		return nil, err
	}

	nameEl, err := ps.reg.NewElement(ps.NameID)
	if err != nil {
		return nil, err
	}

	if err = nameEl.SetString(name); err != nil {
		return nil, err
	}

	pktsEl, err := ps.reg.NewElement(ps.PktsID)
	if err != nil {
		return nil, err
	}

	if err = pktsEl.SetUInt(packets); err != nil {
		return nil, err
	}

	for _, el := range []*tracker.Element{idEl, nameEl, pktsEl} {
		if err = entry.Insert(el); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// RegisterPhy adds a phy handler with the next free id.
func (s *Store) RegisterPhy(name string) *PhyHandler {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &PhyHandler{ID: s.nextPhy, Name: name}
	s.phys[p.ID] = p
	s.phyOrder = append(s.phyOrder, p.ID)
	s.nextPhy++

	return p
}

// Phys returns the registered phy handlers in registration order.
func (s *Store) Phys() []*PhyHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*PhyHandler, 0, len(s.phyOrder))
	for _, id := range s.phyOrder {
		out = append(out, s.phys[id])
	}

	return out
}

// FindPhy looks up a phy handler by id.
func (s *Store) FindPhy(id uint32) (*PhyHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.phys[id]

	return p, ok
}
