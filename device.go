package rfm69

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RadioConfig carries the construction-time chip settings applied by
// NewWithHardware before the device is handed back to the caller.
type RadioConfig struct {
	// HighPower selects the module's PA class: true for an RFM69H*
	// (PA1/PA2, -2..+20 dBm), false for a plain RFM69 (PA0 only,
	// -18..+13 dBm). The original driver bakes this into a build-time
	// #define; here it is one constructor argument instead, since a Go
	// binary has no equivalent compile-time module variant switch.
	HighPower bool
	// NodeAddress is this radio's own address, used for address
	// filtering and stamped into outgoing packet headers.
	NodeAddress byte
}

// HardwareConfig bundles RadioConfig with the injected capability
// interfaces NewWithHardware needs.
type HardwareConfig struct {
	RadioConfig
	// Reset is the chip's reset pin.
	Reset Pin
	// IRQ is an optional interrupt pin. The core never waits on it
	// directly (every suspension point is a flag poll), but adapters may
	// expose it for callers who want edge-triggered wakeups of their own.
	IRQ Pin
}

// Device is a single RFM69 radio context: the bus handle, pin identifiers,
// and a cache of last-written mode, power level, PA mode, OCP trim, node
// address and the most recent operation status.
type Device struct {
	config HardwareConfig
	bus    Bus
	clock  Clock

	mu sync.Mutex

	mode      OpMode
	paLevel   int8
	paMode    PaMode
	ocpTrim   byte
	lastError error

	closer io.Closer
}

// NewWithHardware creates and initializes a new RFM69 driver with the
// provided bus, clock and hardware pins. It pulses reset, probes the
// version register, and applies the baseline configuration the spec's
// initialization sequence mandates: packet data mode, continuous-mode DAGC
// improvement, +13 dBm power, an RSSI threshold, FIFO-not-empty TX start
// condition, broadcast address 0xFF, node+broadcast address filtering and a
// three-byte {0x01,0x01,0x01} sync word.
func NewWithHardware(c HardwareConfig, bus Bus, clock Clock) (*Device, error) {
	if c.Reset == nil {
		return nil, fmt.Errorf("rfm69: reset pin not configured")
	}
	if bus == nil {
		return nil, fmt.Errorf("rfm69: bus not configured")
	}

	d := &Device{
		config:  c,
		bus:     bus,
		clock:   clock,
		mode:    ModeStandby,
		paLevel: -1,
		paMode:  PaModeUnknown,
		ocpTrim: OcpTrimDefault,
	}

	globalLogger.Info("resetting RFM69")
	d.Reset()

	var version [1]byte
	if err := d.Read(regVersion, version[:]); err != nil {
		return nil, err
	}
	if version[0] == 0x00 || version[0] == 0xFF {
		d.lastError = ErrRegisterTestFail
		return nil, ErrRegisterTestFail
	}

	if err := d.DataModeSet(DataModePacket); err != nil {
		return nil, err
	}
	if err := d.DagcSet(DagcImproved0); err != nil {
		return nil, err
	}
	if err := d.PowerLevelSet(13); err != nil {
		return nil, err
	}
	if err := d.RssiThresholdSet(0xE4); err != nil {
		return nil, err
	}
	if err := d.TxStartConditionSet(TxStartFifoNotEmpty); err != nil {
		return nil, err
	}
	if err := d.BroadcastAddressSet(0xFF); err != nil {
		return nil, err
	}
	if err := d.AddressFilterSet(FilterNodeBroadcast); err != nil {
		return nil, err
	}
	if c.NodeAddress != 0 {
		if err := d.NodeAddressSet(c.NodeAddress); err != nil {
			return nil, err
		}
	}
	if err := d.SyncValueSet([]byte{0x01, 0x01, 0x01}); err != nil {
		return nil, err
	}

	globalLogger.Info("RFM69 initialized")
	return d, nil
}

// Reset pulses the reset pin high for at least 100 microseconds, releases
// it, then waits at least 5 milliseconds for the chip to come back up.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.config.Reset.Out(High)
	d.clock.Sleep(100 * time.Microsecond)
	d.config.Reset.Out(Low)
	d.clock.Sleep(5 * time.Millisecond)
}

// settle brackets a chip-select edge with a short delay, matching the
// three-no-op pause the reference driver inserts for pin settling.
func (d *Device) settle() {
	d.clock.Sleep(time.Nanosecond)
}

// Write performs a burst register write: asserts CS, clocks the address
// byte (high bit set) followed by data, then deasserts CS. Chips that
// auto-increment the internal address pointer let callers pass multi-byte
// buffers for the FIFO or contiguous configuration registers.
func (d *Device) Write(addr byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLocked(addr, data)
}

func (d *Device) writeLocked(addr byte, data []byte) error {
	d.settle()
	d.bus.CSAssert()
	d.settle()
	defer func() {
		d.settle()
		d.bus.CSDeassert()
		d.settle()
	}()

	n, err := d.bus.TransferWrite([]byte{addr | 0x80})
	total := n
	if err == nil {
		n, err = d.bus.TransferWrite(data)
		total += n
	}
	if err != nil || total != 1+len(data) {
		d.lastError = ErrBusUnexpectedReturn
		return ErrBusUnexpectedReturn
	}
	d.lastError = nil
	return nil
}

// Read performs a burst register read: asserts CS, clocks the address byte
// (high bit cleared), then clocks len(out) bytes in.
func (d *Device) Read(addr byte, out []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readLocked(addr, out)
}

func (d *Device) readLocked(addr byte, out []byte) error {
	d.settle()
	d.bus.CSAssert()
	d.settle()
	defer func() {
		d.settle()
		d.bus.CSDeassert()
		d.settle()
	}()

	n, err := d.bus.TransferWrite([]byte{addr &^ 0x80})
	total := n
	if err == nil {
		n, err = d.bus.TransferRead(out)
		total += n
	}
	if err != nil || total != 1+len(out) {
		d.lastError = ErrBusUnexpectedReturn
		return ErrBusUnexpectedReturn
	}
	d.lastError = nil
	return nil
}

// WriteMasked does a read-modify-write of a single byte register:
// reg = (reg &^ mask) | (value & mask).
func (d *Device) WriteMasked(addr, value, mask byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeMaskedLocked(addr, value, mask)
}

func (d *Device) writeMaskedLocked(addr, value, mask byte) error {
	var reg [1]byte
	if err := d.readLocked(addr, reg[:]); err != nil {
		return err
	}
	reg[0] = (reg[0] &^ mask) | (value & mask)
	return d.writeLocked(addr, reg[:])
}

// ReadMasked reads a single byte register and returns reg & mask.
func (d *Device) ReadMasked(addr, mask byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readMaskedLocked(addr, mask)
}

func (d *Device) readMaskedLocked(addr, mask byte) (byte, error) {
	var reg [1]byte
	if err := d.readLocked(addr, reg[:]); err != nil {
		return 0, err
	}
	return reg[0] & mask, nil
}

// FIFOWrite writes data into the chip's FIFO register.
func (d *Device) FIFOWrite(data []byte) error {
	return d.Write(regFIFO, data)
}

// FIFORead reads n bytes out of the chip's FIFO register.
func (d *Device) FIFORead(n int) ([]byte, error) {
	out := make([]byte, n)
	if err := d.Read(regFIFO, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clock returns the monotonic time source and sleep primitive this Device
// was constructed with, so callers layering a protocol on top (such as
// package rdp) can share the same injected, fakeable time source rather
// than reaching for the time package directly.
func (d *Device) Clock() Clock {
	return d.clock
}

// LastError returns the status of the most recently completed bus
// operation, or nil if it succeeded.
func (d *Device) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastError
}

// String returns a human-readable summary of the radio's cached state.
func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("RFM69(Mode=%s, PaLevel=%d, PaMode=%d, NodeAddr=%#02x)",
		d.mode, d.paLevel, d.paMode, d.config.NodeAddress)
}

// Close releases the underlying bus handle, if the adapter that created
// this Device attached a closer.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
