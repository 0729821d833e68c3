package rfm69

// FrequencySet sets the carrier frequency in Hz. The chip uses
// Frf = Fstep * N with Fstep ~= 61 Hz; N is rounded to the nearest integer
// and split into three big-endian bytes written to FRF_MSB/MID/LSB.
func (d *Device) FrequencySet(hz uint32) error {
	n := (hz + fStep/2) / fStep
	buf := []byte{
		byte(n >> 16),
		byte(n >> 8),
		byte(n),
	}
	return d.Write(regFrfMSB, buf)
}

// FrequencyGet reads the register-computed carrier frequency in Hz. It
// preserves exact round-trip parity with FrequencySet's formula: the
// returned value is N * Fstep for whatever N is currently latched, which
// may differ slightly from the value last requested due to rounding.
func (d *Device) FrequencyGet() (uint32, error) {
	var buf [3]byte
	if err := d.Read(regFrfMSB, buf[:]); err != nil {
		return 0, err
	}
	n := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	return n * fStep, nil
}

// FdevSet sets the frequency deviation in Hz, using the same Frf = Fstep*N
// arithmetic as FrequencySet, with the MSB masked to 6 bits.
func (d *Device) FdevSet(hz uint32) error {
	n := (hz + fStep/2) / fStep
	buf := []byte{
		byte(n>>8) & 0x3F,
		byte(n),
	}
	return d.Write(regFdevMSB, buf)
}

// RxBwSet sets the channel filter bandwidth mantissa and exponent.
func (d *Device) RxBwSet(mantissa RxBwMantissa, exponent byte) error {
	exponent &= rxBwExponentMask
	value := exponent | (byte(mantissa) & rxBwMantissaMask)
	return d.WriteMasked(regRxBw, value, rxBwExponentMask|rxBwMantissaMask)
}

// BitrateSet sets the modem bitrate from the chip's lookup table.
func (d *Device) BitrateSet(rate ModemBitrate) error {
	buf := []byte{byte(rate >> 8), byte(rate)}
	return d.Write(regBitrateMSB, buf)
}

// BitrateGet reads the raw 16-bit bitrate register value back.
func (d *Device) BitrateGet() (uint16, error) {
	var buf [2]byte
	if err := d.Read(regBitrateMSB, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}
