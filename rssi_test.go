package rfm69

import "testing"

func TestRssiMeasurementBusy(t *testing.T) {
	d, bus := newTestDevice(t, false)

	bus.regs[regRssiConfig] = rssiMeasurementDone
	_, err := d.RssiMeasurementGet()
	if err != ErrRssiBusy {
		t.Fatalf("expected ErrRssiBusy, got %v", err)
	}
}

func TestRssiMeasurementGet(t *testing.T) {
	d, bus := newTestDevice(t, false)

	bus.regs[regRssiConfig] = 0x00
	bus.regs[regRssiValue] = 200
	v, err := d.RssiMeasurementGet()
	if err != nil {
		t.Fatalf("RssiMeasurementGet: %v", err)
	}
	if v != -100 {
		t.Errorf("expected -100 dBm (200>>1), got %d", v)
	}
}

func TestRssiThresholdSet(t *testing.T) {
	d, bus := newTestDevice(t, false)

	if err := d.RssiThresholdSet(0x50); err != nil {
		t.Fatalf("RssiThresholdSet: %v", err)
	}
	if bus.regs[regRssiThresh] != 0x50 {
		t.Errorf("expected threshold latched, got %#02x", bus.regs[regRssiThresh])
	}
}
