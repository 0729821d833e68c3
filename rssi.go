package rfm69

// RssiMeasurementStart triggers a new RSSI reading.
func (d *Device) RssiMeasurementStart() error {
	var reg [1]byte
	if err := d.Read(regRssiConfig, reg[:]); err != nil {
		return err
	}
	reg[0] |= rssiMeasurementStart
	return d.Write(regRssiConfig, reg[:])
}

// RssiMeasurementGet reads the value of the last RSSI measurement, in dBm.
// It returns ErrRssiBusy if a measurement is still in flight.
func (d *Device) RssiMeasurementGet() (int16, error) {
	var cfg [1]byte
	if err := d.Read(regRssiConfig, cfg[:]); err != nil {
		return 0, err
	}
	if cfg[0]&rssiMeasurementDone != 0 {
		return 0, ErrRssiBusy
	}

	var value [1]byte
	if err := d.Read(regRssiValue, value[:]); err != nil {
		return 0, err
	}
	return -int16(value[0] >> 1), nil
}

// RssiThresholdSet sets the RSSI threshold used by the RX timeout state
// machine.
func (d *Device) RssiThresholdSet(threshold byte) error {
	return d.Write(regRssiThresh, []byte{threshold})
}
