package rfm69

import "testing"

func TestFrequencyRoundTrip(t *testing.T) {
	d, _ := newTestDevice(t, false)

	const target = 915_000_000
	if err := d.FrequencySet(target); err != nil {
		t.Fatalf("FrequencySet: %v", err)
	}
	got, err := d.FrequencyGet()
	if err != nil {
		t.Fatalf("FrequencyGet: %v", err)
	}

	n := (uint32(target) + fStep/2) / fStep
	want := n * fStep
	if got != want {
		t.Errorf("expected exact Frf=Fstep*N round trip %d, got %d", want, got)
	}
}

func TestFdevSetMasksMSBTo6Bits(t *testing.T) {
	d, bus := newTestDevice(t, false)

	if err := d.FdevSet(300_000); err != nil {
		t.Fatalf("FdevSet: %v", err)
	}
	data, ok := bus.lastWriteTo(regFdevMSB)
	if !ok {
		t.Fatalf("expected FdevMSB write")
	}
	if data[0]&0xC0 != 0 {
		t.Errorf("expected top 2 bits of FdevMSB clear, got %#02x", data[0])
	}
}

func TestBitrateSetGet(t *testing.T) {
	d, _ := newTestDevice(t, false)

	if err := d.BitrateSet(ModemBitrate57_6); err != nil {
		t.Fatalf("BitrateSet: %v", err)
	}
	got, err := d.BitrateGet()
	if err != nil {
		t.Fatalf("BitrateGet: %v", err)
	}
	if got != uint16(ModemBitrate57_6) {
		t.Errorf("expected %#04x, got %#04x", uint16(ModemBitrate57_6), got)
	}
}

func TestRxBwSet(t *testing.T) {
	d, bus := newTestDevice(t, false)

	if err := d.RxBwSet(RxBwMantissa20, 2); err != nil {
		t.Fatalf("RxBwSet: %v", err)
	}
	if bus.regs[regRxBw] != byte(RxBwMantissa20)|2 {
		t.Errorf("expected mantissa|exponent combined, got %#02x", bus.regs[regRxBw])
	}
}
