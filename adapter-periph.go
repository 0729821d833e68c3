//go:build !tinygo

package rfm69

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// realPin wraps a gpio.PinIO to satisfy the Pin interface.
type realPin struct {
	gpio.PinIO
	stopWatch chan struct{}
}

func (p *realPin) Out(l Level) error {
	if l == High {
		return p.PinIO.Out(gpio.High)
	}
	return p.PinIO.Out(gpio.Low)
}

func (p *realPin) In(pull Pull) error {
	var pPull gpio.Pull
	switch pull {
	case PullFloat:
		pPull = gpio.Float
	case PullDown:
		pPull = gpio.PullDown
	case PullUp:
		pPull = gpio.PullUp
	default:
		pPull = gpio.PullNoChange
	}
	return p.PinIO.In(pPull, gpio.NoEdge)
}

func (p *realPin) Read() Level {
	if p.PinIO.Read() == gpio.High {
		return High
	}
	return Low
}

func (p *realPin) Watch(edge Edge, handler func()) error {
	var pEdge gpio.Edge
	switch edge {
	case RisingEdge:
		pEdge = gpio.RisingEdge
	case FallingEdge:
		pEdge = gpio.FallingEdge
	case BothEdges:
		pEdge = gpio.BothEdges
	default:
		pEdge = gpio.NoEdge
	}

	if err := p.PinIO.In(gpio.PullUp, pEdge); err != nil {
		return err
	}

	p.stopWatch = make(chan struct{})

	go func() {
		for {
			if p.PinIO.WaitForEdge(-1) {
				select {
				case <-p.stopWatch:
					return
				default:
					handler()
				}
			} else {
				select {
				case <-p.stopWatch:
					return
				default:
				}
			}
		}
	}()
	return nil
}

func (p *realPin) Unwatch() error {
	if p.stopWatch != nil {
		close(p.stopWatch)
		p.stopWatch = nil
	}
	return p.PinIO.In(gpio.PullUp, gpio.NoEdge)
}

// periphBus implements Bus over a periph.io spi.Conn plus a dedicated CS
// pin driven by hand, since the chip's half-duplex write/read pair does not
// map onto spidev's automatic per-transaction chip select.
type periphBus struct {
	conn spi.Conn
	cs   gpio.PinIO
}

func (b *periphBus) TransferWrite(w []byte) (int, error) {
	if len(w) == 0 {
		return 0, nil
	}
	r := make([]byte, len(w))
	if err := b.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return len(w), nil
}

func (b *periphBus) TransferRead(out []byte) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	w := make([]byte, len(out))
	if err := b.conn.Tx(w, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (b *periphBus) CSAssert() {
	b.cs.Out(gpio.Low)
}

func (b *periphBus) CSDeassert() {
	b.cs.Out(gpio.High)
}

// periphClock implements Clock over the standard library's time package.
type periphClock struct{}

func (periphClock) Now() time.Time        { return time.Now() }
func (periphClock) Sleep(d time.Duration) { time.Sleep(d) }

// Config holds the configuration for the Linux/periph.io driver.
type Config struct {
	RadioConfig
	// ResetPin is the GPIO pin number (BCM numbering) for the reset pin.
	// Defaults to 25 if not provided.
	ResetPin int
	// IRQPin is the GPIO pin number (BCM numbering) for the optional
	// interrupt pin.
	IRQPin int
	// CSPin is the GPIO pin number (BCM numbering) for chip select,
	// toggled by hand around every bus transaction.
	CSPin int
	// SpiBusPath is the path to the SPI bus (e.g., "/dev/spidev0.0").
	// Defaults to "/dev/spidev0.0" if not provided.
	SpiBusPath string
	// SpiClockHz is the SPI clock frequency in Hz.
	// Defaults to 4000000 (4MHz) if not provided.
	SpiClockHz int
}

// New creates and initializes a new RFM69 driver for Linux systems, using
// periph.io for both the SPI connection and GPIO pins.
func New(c Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io host: %w", err)
	}

	if c.SpiBusPath == "" {
		c.SpiBusPath = "/dev/spidev0.0"
	}
	p, err := spireg.Open(c.SpiBusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port: %w", err)
	}

	if c.SpiClockHz == 0 {
		c.SpiClockHz = 4000000
	}
	conn, err := p.Connect(physic.Frequency(c.SpiClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create SPI connection: %w", err)
	}

	if c.ResetPin == 0 {
		c.ResetPin = 25
	}
	resetName := fmt.Sprintf("GPIO%d", c.ResetPin)
	realReset := gpioreg.ByName(resetName)
	if realReset == nil {
		p.Close()
		return nil, fmt.Errorf("failed to open reset pin %s", resetName)
	}
	resetWrapper := &realPin{PinIO: realReset}

	if c.CSPin == 0 {
		return nil, fmt.Errorf("CSPin must be configured")
	}
	csName := fmt.Sprintf("GPIO%d", c.CSPin)
	csPin := gpioreg.ByName(csName)
	if csPin == nil {
		p.Close()
		return nil, fmt.Errorf("failed to open CS pin %s", csName)
	}
	if err := csPin.Out(gpio.High); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to configure CS pin: %w", err)
	}

	var irqWrapper Pin
	if c.IRQPin != 0 {
		irqName := fmt.Sprintf("GPIO%d", c.IRQPin)
		realIrq := gpioreg.ByName(irqName)
		if realIrq == nil {
			p.Close()
			return nil, fmt.Errorf("failed to open IRQ pin %s", irqName)
		}
		irqWrapper = &realPin{PinIO: realIrq}
	}

	hwConfig := HardwareConfig{
		RadioConfig: c.RadioConfig,
		Reset:       resetWrapper,
		IRQ:         irqWrapper,
	}

	bus := &periphBus{conn: conn, cs: csPin}
	dev, err := NewWithHardware(hwConfig, bus, periphClock{})
	if err != nil {
		p.Close()
		return nil, err
	}
	dev.closer = p
	return dev, nil
}
