//go:build tinygo

package rfm69

import (
	"machine"
	"time"
)

// tinygoPin wraps a machine.Pin to satisfy the Pin interface.
type tinygoPin struct {
	pin machine.Pin
}

func (p *tinygoPin) Out(l Level) error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Set(bool(l))
	return nil
}

func (p *tinygoPin) In(pull Pull) error {
	var mPull machine.PinMode
	switch pull {
	case PullUp:
		mPull = machine.PinInputPullup
	case PullDown:
		mPull = machine.PinInputPulldown
	default:
		mPull = machine.PinInput
	}
	p.pin.Configure(machine.PinConfig{Mode: mPull})
	return nil
}

func (p *tinygoPin) Read() Level {
	return Level(p.pin.Get())
}

func (p *tinygoPin) Watch(edge Edge, handler func()) error {
	var mEdge machine.PinChange
	switch edge {
	case RisingEdge:
		mEdge = machine.PinRising
	case FallingEdge:
		mEdge = machine.PinFalling
	case BothEdges:
		mEdge = machine.PinToggle
	default:
		return nil
	}

	return p.pin.SetInterrupt(mEdge, func(machine.Pin) {
		handler()
	})
}

func (p *tinygoPin) Unwatch() error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}

// tinygoBus wraps a machine.SPI plus a manually toggled CS pin to satisfy
// the Bus interface. The chip's write and read primitives are each
// one-sided, so CS is asserted and deasserted by the caller around a pair
// of half-duplex transfers rather than once per Tx call.
type tinygoBus struct {
	spi *machine.SPI
	cs  machine.Pin
}

func (b *tinygoBus) TransferWrite(w []byte) (int, error) {
	if len(w) == 0 {
		return 0, nil
	}
	r := make([]byte, len(w))
	if err := b.spi.Tx(w, r); err != nil {
		return 0, err
	}
	return len(w), nil
}

func (b *tinygoBus) TransferRead(out []byte) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	w := make([]byte, len(out))
	if err := b.spi.Tx(w, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (b *tinygoBus) CSAssert() {
	b.cs.Low()
}

func (b *tinygoBus) CSDeassert() {
	b.cs.High()
}

// tinygoClock implements Clock over TinyGo's time package.
type tinygoClock struct{}

func (tinygoClock) Now() time.Time        { return time.Now() }
func (tinygoClock) Sleep(d time.Duration) { time.Sleep(d) }

// Config holds the configuration for the TinyGo driver.
type Config struct {
	RadioConfig
	// SPI is the SPI bus to use.
	SPI *machine.SPI
	// CSPin is the Chip Select (CS) pin.
	CSPin machine.Pin
	// ResetPin is the reset pin.
	ResetPin machine.Pin
	// IRQPin is the Interrupt Request (IRQ) pin.
	// Use machine.NoPin if not using interrupts.
	IRQPin machine.Pin
}

// New creates a new RFM69 driver for TinyGo systems.
func New(c Config) (*Device, error) {
	c.CSPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	c.CSPin.High()

	resetWrapper := &tinygoPin{pin: c.ResetPin}

	var irqWrapper Pin
	if c.IRQPin != machine.NoPin {
		irqWrapper = &tinygoPin{pin: c.IRQPin}
	}

	bus := &tinygoBus{spi: c.SPI, cs: c.CSPin}

	hwConfig := HardwareConfig{
		RadioConfig: c.RadioConfig,
		Reset:       resetWrapper,
		IRQ:         irqWrapper,
	}

	return NewWithHardware(hwConfig, bus, tinygoClock{})
}
