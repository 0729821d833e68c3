package rfm69

// ModeSet transitions the chip to the target operating mode. A target equal
// to the cached mode is a no-op. Otherwise PA-output is slaved to the
// transition (high-power is enabled before entering Transmit and disabled
// before entering Receive, when the cached power level is >= 17 dBm), the
// mode bits are written masked into OpMode, and the call spins on
// IRQ1.ModeReady before the cache is updated. A bus error at any step
// leaves the cache untouched.
func (d *Device) ModeSet(mode OpMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mode == mode {
		d.lastError = nil
		return nil
	}

	if mode == ModeReceive && d.paLevel >= 17 {
		if err := d.hpSetLocked(false); err != nil {
			return err
		}
	} else if mode == ModeTransmit && d.paLevel >= 17 {
		if err := d.hpSetLocked(true); err != nil {
			return err
		}
	}

	if err := d.writeMaskedLocked(regOpMode, byte(mode), byte(opModeMask)); err != nil {
		return err
	}

	if err := d.modeWaitUntilReadyLocked(); err != nil {
		return err
	}

	d.mode = mode
	return nil
}

// Mode returns the cached operating mode. It never touches the bus.
func (d *Device) Mode() OpMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Device) modeWaitUntilReadyLocked() error {
	for {
		ready, err := d.readMaskedLocked(regIrqFlags1, byte(Irq1ModeReady))
		if err != nil {
			return err
		}
		if ready != 0 {
			return nil
		}
	}
}

// Irq1FlagState reports whether the given IrqFlags1 bit is set.
func (d *Device) Irq1FlagState(flag IrqFlag1) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, err := d.readMaskedLocked(regIrqFlags1, byte(flag))
	if err != nil {
		return false, err
	}
	return reg != 0, nil
}

// Irq2FlagState reports whether the given IrqFlags2 bit is set.
func (d *Device) Irq2FlagState(flag IrqFlag2) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, err := d.readMaskedLocked(regIrqFlags2, byte(flag))
	if err != nil {
		return false, err
	}
	return reg != 0, nil
}
