// Package registry maintains the in-memory device inventory: the primary
// key index, the hardware-address multi-index, and the insertion-ordered
// scan sequence, together with the two-tier lock discipline that protects
// them.
package registry

import "github.com/wavesentry/wavesentry/pkg/tracker"

// BaseSchema holds the resolved field ids for the well-known device fields.
// It registers them once against the schema registry at startup; every
// component that builds or projects device trees shares one instance.
type BaseSchema struct {
	reg *tracker.Registry

	KeyID       int
	MACID       int
	NameID      int
	PhyNameID   int
	FirstTimeID int
	LastTimeID  int
	ChannelID   int
	FrequencyID int
	ManufID     int
	SignalID    int
	SignalDBMID int
	MaxDBMID    int
	PacketsID   int

	DeviceListID int
}

// NewBaseSchema registers the base device fields and returns their ids.
func NewBaseSchema(reg *tracker.Registry) *BaseSchema {
	return &BaseSchema{
		reg: reg,

		KeyID:       reg.RegisterField("wavesentry.device.base.key", tracker.TypeString, "unique device key"),
		MACID:       reg.RegisterField("wavesentry.device.base.macaddr", tracker.TypeMAC, "hardware address"),
		NameID:      reg.RegisterField("wavesentry.device.base.name", tracker.TypeString, "printable device name"),
		PhyNameID:   reg.RegisterField("wavesentry.device.base.phyname", tracker.TypeString, "phy handler name"),
		FirstTimeID: reg.RegisterField("wavesentry.device.base.first_time", tracker.TypeUInt64, "first observation time"),
		LastTimeID:  reg.RegisterField("wavesentry.device.base.last_time", tracker.TypeUInt64, "last observation time"),
		ChannelID:   reg.RegisterField("wavesentry.device.base.channel", tracker.TypeString, "phy-specific channel"),
		FrequencyID: reg.RegisterField("wavesentry.device.base.frequency", tracker.TypeFloat64, "frequency in kHz"),
		ManufID:     reg.RegisterField("wavesentry.device.base.manuf", tracker.TypeString, "manufacturer name"),
		SignalID:    reg.RegisterField("wavesentry.device.base.signal", tracker.TypeMap, "signal block"),
		SignalDBMID: reg.RegisterField("wavesentry.device.base.signal.last_signal_dbm", tracker.TypeInt32, "last signal dbm"),
		MaxDBMID:    reg.RegisterField("wavesentry.device.base.signal.max_signal_dbm", tracker.TypeInt32, "strongest signal dbm"),
		PacketsID:   reg.RegisterField("wavesentry.device.base.packets.total", tracker.TypeUInt64, "total packets"),

		DeviceListID: reg.RegisterField("wavesentry.device.list", tracker.TypeVector, "list of devices"),
	}
}

// Registry returns the backing schema registry.
func (s *BaseSchema) Registry() *tracker.Registry { return s.reg }

// NewDeviceList creates an empty device collection vector.
func (s *BaseSchema) NewDeviceList() *tracker.Element {
	el, err := s.reg.NewElement(s.DeviceListID)
	if err != nil {
		// DeviceListID is registered in the constructor.
		panic(err)
	}

	return el
}
