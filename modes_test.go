package rfm69

import "testing"

func TestModeSetTransitionsAndCaches(t *testing.T) {
	d, bus := newTestDevice(t, false)

	if err := d.ModeSet(ModeTransmit); err != nil {
		t.Fatalf("ModeSet(Transmit): %v", err)
	}
	if d.Mode() != ModeTransmit {
		t.Fatalf("expected cached mode Transmit, got %s", d.Mode())
	}
	data, ok := bus.lastWriteTo(regOpMode)
	if !ok {
		t.Fatalf("expected a write to OpMode")
	}
	if OpMode(data[0])&opModeMask != ModeTransmit {
		t.Errorf("expected OpMode write to carry Transmit bits, got %#02x", data[0])
	}
}

func TestModeSetIdempotence(t *testing.T) {
	d, bus := newTestDevice(t, false)

	if err := d.ModeSet(ModeReceive); err != nil {
		t.Fatalf("ModeSet(Receive): %v", err)
	}
	n := len(bus.writes)

	if err := d.ModeSet(ModeReceive); err != nil {
		t.Fatalf("second ModeSet(Receive): %v", err)
	}
	if len(bus.writes) != n {
		t.Errorf("expected no additional bus traffic from a redundant ModeSet, wrote %d more bytes-ops", len(bus.writes)-n)
	}
}

func TestModeSetSlavesPAOnHighPowerTransmit(t *testing.T) {
	d, bus := newTestDevice(t, true)

	if err := d.PowerLevelSet(20); err != nil {
		t.Fatalf("PowerLevelSet(20): %v", err)
	}
	base := len(bus.writes)

	if err := d.ModeSet(ModeTransmit); err != nil {
		t.Fatalf("ModeSet(Transmit): %v", err)
	}

	pa1Idx := bus.writeIndexOf(regTestPA1, base)
	opModeIdx := bus.writeIndexOf(regOpMode, base)
	if pa1Idx == -1 {
		t.Fatalf("expected a TestPA1 write when entering Transmit at >=17dBm")
	}
	if opModeIdx == -1 || pa1Idx > opModeIdx {
		t.Errorf("expected PA pins written before the OpMode transition, pa1Idx=%d opModeIdx=%d", pa1Idx, opModeIdx)
	}
	data, _ := bus.lastWriteTo(regTestPA1)
	if data[0] != hpPA1High {
		t.Errorf("expected high-power TestPA1 magic value, got %#02x", data[0])
	}

	base2 := len(bus.writes)
	if err := d.ModeSet(ModeReceive); err != nil {
		t.Fatalf("ModeSet(Receive): %v", err)
	}
	if bus.writeIndexOf(regTestPA1, base2) == -1 {
		t.Errorf("expected high-power disengage on transition back to Receive")
	}
	data, _ = bus.lastWriteTo(regTestPA1)
	if data[0] != hpPA1Low {
		t.Errorf("expected low-power TestPA1 magic value after leaving Transmit, got %#02x", data[0])
	}
}

func TestModeSetNoSlavingBelowThreshold(t *testing.T) {
	d, bus := newTestDevice(t, true)

	if err := d.PowerLevelSet(10); err != nil {
		t.Fatalf("PowerLevelSet(10): %v", err)
	}
	base := len(bus.writes)
	if err := d.ModeSet(ModeTransmit); err != nil {
		t.Fatalf("ModeSet(Transmit): %v", err)
	}
	if bus.writeIndexOf(regTestPA1, base) != -1 {
		t.Errorf("did not expect PA high-power slaving below 17dBm")
	}
}

func TestIrqFlagState(t *testing.T) {
	d, bus := newTestDevice(t, false)

	bus.regs[regIrqFlags2] = byte(Irq2PayloadReady | Irq2FifoFull)
	ready, err := d.Irq2FlagState(Irq2PayloadReady)
	if err != nil {
		t.Fatalf("Irq2FlagState: %v", err)
	}
	if !ready {
		t.Errorf("expected PayloadReady set")
	}
	sent, err := d.Irq2FlagState(Irq2PacketSent)
	if err != nil {
		t.Fatalf("Irq2FlagState: %v", err)
	}
	if sent {
		t.Errorf("did not expect PacketSent set")
	}
}
