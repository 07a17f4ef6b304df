package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wavesentry/wavesentry/pkg/logger"
	"github.com/wavesentry/wavesentry/pkg/tracker"
)

var errDuplicateKey = errors.New("device key already present")

// Store is the indexed device collection: a primary key index, a secondary
// hardware-address multi-index (several logical devices may share one
// address across observation contexts), and the append-ordered sequence
// that defines enumeration order for scans, sorting, and pagination.
//
// All three structures are mutated only under the structural lock, in a
// fixed order: sequence, then primary index, then secondary index. A reader
// holding the lock never observes a record present in one index but absent
// from another.
type Store struct {
	mu sync.RWMutex

	byKey map[tracker.DeviceKey]*Device
	byMAC map[tracker.MAC][]*Device
	seq   []*Device

	phys     map[uint32]*PhyHandler
	phyOrder []uint32
	nextPhy  uint32

	log logger.Logger
}

// NewStore creates an empty device store.
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Store{
		byKey: make(map[tracker.DeviceKey]*Device),
		byMAC: make(map[tracker.MAC][]*Device),
		phys:  make(map[uint32]*PhyHandler),
		log:   log,
	}
}

// Insert adds a record to every index atomically. Inserting a key already
// present is an error and touches no index.
func (s *Store) Insert(d *Device) error {
	if d == nil {
		return errors.New("nil device")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[d.Key()]; exists {
		return fmt.Errorf("%w: %s", errDuplicateKey, d.Key())
	}

	s.seq = append(s.seq, d)
	s.byKey[d.Key()] = d
	s.byMAC[d.MAC()] = append(s.byMAC[d.MAC()], d)

	s.log.Debug().
		Str("key", d.Key().String()).
		Str("mac", d.MAC().String()).
		Msg("device inserted")

	return nil
}

// FindByKey looks up a record by primary key.
func (s *Store) FindByKey(key tracker.DeviceKey) (*Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byKey[key]

	return d, ok
}

// FindByMAC returns every record sharing the hardware address.
func (s *Store) FindByMAC(mac tracker.MAC) []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.byMAC[mac]
	if len(bucket) == 0 {
		return nil
	}

	out := make([]*Device, len(bucket))
	copy(out, bucket)

	return out
}

// HasMAC reports whether any record carries the hardware address.
func (s *Store) HasMAC(mac tracker.MAC) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byMAC[mac]) > 0
}

// Scan snapshots the enumeration sequence. The structural lock is held only
// long enough to copy the handle slice; iteration happens after release, so
// records inserted or removed afterward may or may not be seen by a caller
// still walking the snapshot.
func (s *Store) Scan() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Device, len(s.seq))
	copy(out, s.seq)

	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.seq)
}

// Remove evicts a record from every index atomically, in the fixed mutation
// order. It reports whether the key was present.
func (s *Store) Remove(key tracker.DeviceKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byKey[key]
	if !ok {
		return false
	}

	for i, cur := range s.seq {
		if cur == d {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}

	delete(s.byKey, key)

	bucket := s.byMAC[d.MAC()]
	for i, cur := range bucket {
		if cur == d {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}

	if len(bucket) == 0 {
		delete(s.byMAC, d.MAC())
	} else {
		s.byMAC[d.MAC()] = bucket
	}

	s.log.Debug().Str("key", key.String()).Msg("device removed")

	return true
}
