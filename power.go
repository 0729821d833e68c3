package rfm69

// PowerLevelSet clamps the requested level into the module's legal range
// (-18..+13 dBm for a low-power module, -2..+20 dBm for a high-power one),
// maps it to a PA mode and output level per the power policy, and writes
// the PA pins and output level masked. The high-power auxiliary registers
// (TestPA1/TestPA2) follow: the "high" magic values with OCP disabled and
// trim at max when high-power is engaged, the "low" magic values with OCP
// re-enabled otherwise. Unlike the source this is grounded on, a clamped
// set that completes its bus writes is reported as success; only a genuine
// bus error is returned.
func (d *Device) PowerLevelSet(level int8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paLevel == level {
		d.lastError = nil
		return nil
	}

	var mode PaMode
	var pout int8

	if d.config.HighPower {
		if level < PaHighMin {
			level = PaHighMin
		} else if level > PaHighMax {
			level = PaHighMax
		}
		switch {
		case level <= 13:
			mode = PaModePA1
			pout = level + 18
		case level < 18:
			mode = PaModePA1PA2
			pout = level + 14
		default:
			mode = PaModeHigh
			pout = level + 11
		}
	} else {
		if level < PaLowMin {
			level = PaLowMin
		} else if level > PaLowMax {
			level = PaLowMax
		}
		mode = PaModePA0
		pout = level + 18
	}

	if err := d.powerModeSetLocked(mode); err != nil {
		return err
	}
	d.paMode = mode

	if err := d.writeMaskedLocked(regPaLevel, byte(pout), paOutputMask); err != nil {
		return err
	}

	d.paLevel = level
	return nil
}

// PowerLevelGet returns the cached power level in dBm.
func (d *Device) PowerLevelGet() int8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paLevel
}

func (d *Device) powerModeSetLocked(mode PaMode) error {
	if d.paMode == mode {
		return nil
	}

	var pins byte
	switch mode {
	case PaModePA0:
		pins = pa0On
	case PaModePA1:
		pins = pa1On
	case PaModePA1PA2, PaModeHigh:
		pins = pa1On | pa2On
	}

	if err := d.writeMaskedLocked(regPaLevel, pins, paPinsMask); err != nil {
		return err
	}

	return d.hpSetLocked(mode == PaModeHigh)
}

func (d *Device) hpSetLocked(enable bool) error {
	var pa1, pa2, ocp, trim byte
	if enable {
		pa1, pa2 = hpPA1High, hpPA2High
		ocp, trim = ocpDisabled, OcpTrimHigh
	} else {
		pa1, pa2 = hpPA1Low, hpPA2Low
		ocp, trim = ocpEnabled, d.ocpTrim
	}

	if err := d.writeLocked(regTestPA1, []byte{pa1}); err != nil {
		return err
	}
	if err := d.writeLocked(regTestPA2, []byte{pa2}); err != nil {
		return err
	}
	if err := d.ocpSetLocked(ocp); err != nil {
		return err
	}
	return d.writeMaskedLocked(regOcp, trim, ocpTrimMask)
}

func (d *Device) ocpSetLocked(state byte) error {
	return d.writeMaskedLocked(regOcp, state, ocpEnabled)
}
