// Package rfm69 drives an RFM69-class sub-GHz FSK transceiver: a packet
// radio with a 66-byte FIFO, a bank of configuration registers reached over
// a serial peripheral bus, and two status-flag registers.
package rfm69

import "time"

// Level represents the logical level of a pin (Low or High).
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Pull represents the internal pull-up/down resistor state.
type Pull uint8

const (
	PullNoChange Pull = iota
	PullFloat
	PullDown
	PullUp
)

// Edge represents the signal edge to trigger an interrupt.
type Edge uint8

const (
	NoEdge Edge = iota
	RisingEdge
	FallingEdge
	BothEdges
)

// Pin represents a generic GPIO pin, used for the reset pin and the
// optional IRQ pin. The adapters drive chip-select through their own
// platform pin type instead.
type Pin interface {
	// Out sets the pin as output with the given level.
	Out(l Level) error
	// In sets the pin as input with the given pull mode.
	In(pull Pull) error
	// Read returns the current level of the pin.
	Read() Level
	// Watch configures an interrupt/callback on the specified edge.
	Watch(edge Edge, handler func()) error
	// Unwatch removes the interrupt/callback.
	Unwatch() error
}

// Bus is the one interface this package consumes from the host platform.
// Unlike a full-duplex SPI.Tx(w, r), the chip's register protocol is
// naturally half-duplex: clock an address byte out, then either clock
// bytes out or clock bytes in, bracketed by an explicit chip-select edge.
// Implementations must treat CSAssert/CSDeassert as idempotent.
type Bus interface {
	// TransferWrite clocks every byte in w out the bus and returns the
	// number of bytes actually clocked.
	TransferWrite(w []byte) (int, error)
	// TransferRead clocks len(out) dummy bytes out while sampling the
	// same number of bytes into out, returning the count actually read.
	TransferRead(out []byte) (int, error)
	// CSAssert pulls chip-select active (low). Idempotent.
	CSAssert()
	// CSDeassert releases chip-select. Idempotent.
	CSDeassert()
}

// Clock is the monotonic time source and sleep primitive the core uses for
// the settling delays around CS edges and the spin-polls in the mode,
// transmit and receive paths.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}
