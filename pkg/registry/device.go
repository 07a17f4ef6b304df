package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// Device is one tracked device record: an element tree guarded by its own
// exclusive lock. Records are shared between the store indexes; the indexes
// hold handles to the same record, never copies.
//
// The record lock guards the field tree only. Index membership is guarded
// by the store's structural lock, and a holder of the structural lock must
// never acquire a record lock.
type Device struct {
	key tracker.DeviceKey
	mac tracker.MAC

	mu sync.Mutex
	// lockCount instruments lock acquisitions so tests can assert that
	// rejected requests never touched a record.
	lockCount atomic.Uint64

	// lastTime mirrors the last_time field so scan workers can filter
	// without taking the record lock.
	lastTime atomic.Int64

	schema *BaseSchema
	root   *tracker.Element
}

// NewDevice builds a device record with the base field tree populated.
func NewDevice(schema *BaseSchema, key tracker.DeviceKey, phyName string) (*Device, error) {
	d := &Device{
		key:    key,
		mac:    key.MAC,
		schema: schema,
		root:   tracker.NewMap(),
	}

	reg := schema.Registry()

	keyEl, err := reg.NewElement(schema.KeyID)
	if err != nil {
		return nil, err
	}

	if err = keyEl.SetString(key.String()); err != nil {
		return nil, err
	}

	macEl, err := reg.NewElement(schema.MACID)
	if err != nil {
		return nil, err
	}

	if err = macEl.SetMAC(key.MAC); err != nil {
		return nil, err
	}

	phyEl, err := reg.NewElement(schema.PhyNameID)
	if err != nil {
		return nil, err
	}

	if err = phyEl.SetString(phyName); err != nil {
		return nil, err
	}

	signal, err := reg.NewElement(schema.SignalID)
	if err != nil {
		return nil, err
	}

	for _, id := range []int{
		schema.NameID, schema.FirstTimeID, schema.LastTimeID,
		schema.ChannelID, schema.FrequencyID, schema.ManufID, schema.PacketsID,
	} {
		el, elErr := reg.NewElement(id)
		if elErr != nil {
			return nil, elErr
		}

		if err = d.root.Insert(el); err != nil {
			return nil, err
		}
	}

	for _, id := range []int{schema.SignalDBMID, schema.MaxDBMID} {
		el, elErr := reg.NewElement(id)
		if elErr != nil {
			return nil, elErr
		}

		if err = signal.Insert(el); err != nil {
			return nil, err
		}
	}

	for _, el := range []*tracker.Element{keyEl, macEl, phyEl, signal} {
		if err = d.root.Insert(el); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Key returns the primary key.
func (d *Device) Key() tracker.DeviceKey { return d.key }

// MAC returns the hardware address.
func (d *Device) MAC() tracker.MAC { return d.mac }

// Lock acquires the record lock.
func (d *Device) Lock() {
	d.lockCount.Add(1)
	d.mu.Lock()
}

// Unlock releases the record lock.
func (d *Device) Unlock() { d.mu.Unlock() }

// LockAcquisitions reports how many times the record lock has been taken.
func (d *Device) LockAcquisitions() uint64 { return d.lockCount.Load() }

// Root returns the record's field tree. Mutators must hold the record lock.
func (d *Device) Root() *tracker.Element { return d.root }

// Field walks the record tree along a resolved path without locking. Scan
// workers read this way so a slow filter never blocks a mutator; a torn read
// of a field mid-update is the accepted race of a lock-free scan.
func (d *Device) Field(path []int) *tracker.Element {
	return d.root.ChildPath(path)
}

// LastTime returns the last-seen timestamp without locking.
func (d *Device) LastTime() int64 { return d.lastTime.Load() }

// SetLastTime updates the last-seen timestamp in the tree and its lock-free
// mirror.
func (d *Device) SetLastTime(ts int64) error {
	d.Lock()
	defer d.Unlock()

	el, ok := d.root.Get(d.schema.LastTimeID)
	if !ok {
		return fmt.Errorf("device %s has no last_time field", d.key)
	}

	if err := el.SetUInt(uint64(ts)); err != nil {
		return err
	}

	d.lastTime.Store(ts)

	return nil
}

// Name reads the printable device name under the record lock.
func (d *Device) Name() string {
	d.Lock()
	defer d.Unlock()

	el, ok := d.root.Get(d.schema.NameID)
	if !ok {
		return ""
	}

	name, err := el.StringVal()
	if err != nil {
		return ""
	}

	return name
}

// SetName updates the printable device name under the record lock.
func (d *Device) SetName(name string) error {
	d.Lock()
	defer d.Unlock()

	el, ok := d.root.Get(d.schema.NameID)
	if !ok {
		return fmt.Errorf("device %s has no name field", d.key)
	}

	return el.SetString(name)
}

// LockGuard collects record locks taken while producing a response so they
// can be released together once the records' bytes have been written. Lock
// lifetime is scoped to producing one record's output, not to the request.
type LockGuard struct {
	held []*Device
}

// Lock acquires a record lock and remembers it for release.
func (g *LockGuard) Lock(d *Device) {
	d.Lock()
	g.held = append(g.held, d)
}

// UnlockAll releases every held lock in reverse acquisition order.
func (g *LockGuard) UnlockAll() {
	for i := len(g.held) - 1; i >= 0; i-- {
		g.held[i].Unlock()
	}

	g.held = g.held[:0]
}
