package rfm69

import "time"

// regWrite records one completed register write, for assertions about
// bus traffic (e.g. mode-set idempotence, PA slaving order).
type regWrite struct {
	addr byte
	data []byte
}

// fakeBus is an in-memory stand-in for the half-duplex register bus. Each
// CS-bracketed transaction is one address byte followed by either a write
// or a read; fakeBus tracks that two-phase shape the same way the real
// chip's register file does.
type fakeBus struct {
	regs [256]byte

	writes []regWrite

	addrSet bool
	curAddr byte

	shortReturn bool
}

func newFakeBus() *fakeBus {
	b := &fakeBus{}
	b.regs[regIrqFlags1] = byte(Irq1ModeReady)
	b.regs[regVersion] = 0x24
	return b
}

func (b *fakeBus) TransferWrite(w []byte) (int, error) {
	if !b.addrSet {
		b.addrSet = true
		b.curAddr = w[0] &^ 0x80
		return len(w), nil
	}
	if b.shortReturn {
		b.shortReturn = false
		return len(w) - 1, nil
	}
	for i, v := range w {
		if b.curAddr == regFIFO {
			// The FIFO register does not auto-increment: every byte of a
			// burst lands at the same address, leaving the last one latched.
			b.regs[regFIFO] = v
			continue
		}
		b.regs[int(b.curAddr)+i] = v
	}
	b.writes = append(b.writes, regWrite{addr: b.curAddr, data: append([]byte(nil), w...)})
	return len(w), nil
}

func (b *fakeBus) TransferRead(out []byte) (int, error) {
	if b.shortReturn {
		b.shortReturn = false
		return len(out) - 1, nil
	}
	for i := range out {
		out[i] = b.regs[int(b.curAddr)+i]
	}
	return len(out), nil
}

func (b *fakeBus) CSAssert()   { b.addrSet = false }
func (b *fakeBus) CSDeassert() {}

// lastWriteTo returns the most recent recorded write to addr, or false if
// none occurred.
func (b *fakeBus) lastWriteTo(addr byte) ([]byte, bool) {
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].addr == addr {
			return b.writes[i].data, true
		}
	}
	return nil, false
}

// writeIndexOf returns the index in writes of the first write to addr at
// or after from, or -1.
func (b *fakeBus) writeIndexOf(addr byte, from int) int {
	for i := from; i < len(b.writes); i++ {
		if b.writes[i].addr == addr {
			return i
		}
	}
	return -1
}

type fakeClock struct{}

func (fakeClock) Now() time.Time          { return time.Unix(0, 0) }
func (fakeClock) Sleep(d time.Duration)   {}

type fakePin struct {
	mode  string
	level Level
}

func (p *fakePin) Out(l Level) error                     { p.mode = "out"; p.level = l; return nil }
func (p *fakePin) In(pull Pull) error                    { p.mode = "in"; return nil }
func (p *fakePin) Read() Level                           { return p.level }
func (p *fakePin) Watch(edge Edge, handler func()) error { return nil }
func (p *fakePin) Unwatch() error                        { return nil }

func newTestDevice(t interface{ Fatalf(string, ...any) }, highPower bool) (*Device, *fakeBus) {
	bus := newFakeBus()
	reset := &fakePin{}
	d, err := NewWithHardware(HardwareConfig{
		RadioConfig: RadioConfig{HighPower: highPower, NodeAddress: 0x01},
		Reset:       reset,
	}, bus, fakeClock{})
	if err != nil {
		t.Fatalf("NewWithHardware: %v", err)
	}
	return d, bus
}
