package rfm69

// DataModeSet selects packet or continuous data handling.
func (d *Device) DataModeSet(mode DataMode) error {
	return d.WriteMasked(regDataModul, byte(mode), byte(dataModeMask))
}

// DataModeGet reads back the data mode bits.
func (d *Device) DataModeGet() (DataMode, error) {
	v, err := d.ReadMasked(regDataModul, byte(dataModeMask))
	return DataMode(v), err
}

// ModulationTypeSet selects FSK or OOK.
func (d *Device) ModulationTypeSet(t ModulationType) error {
	return d.WriteMasked(regDataModul, byte(t), byte(modulationTypeMask))
}

// ModulationTypeGet reads back the modulation type bits.
func (d *Device) ModulationTypeGet() (ModulationType, error) {
	v, err := d.ReadMasked(regDataModul, byte(modulationTypeMask))
	return ModulationType(v), err
}

// ModulationShapingSet selects the pulse-shaping filter.
func (d *Device) ModulationShapingSet(s ModulationShaping) error {
	return d.WriteMasked(regDataModul, byte(s), byte(modulationShapingMask))
}

// ModulationShapingGet reads back the pulse-shaping filter bits.
func (d *Device) ModulationShapingGet() (ModulationShaping, error) {
	v, err := d.ReadMasked(regDataModul, byte(modulationShapingMask))
	return ModulationShaping(v), err
}

// TxStartConditionSet selects what triggers the chip to start transmitting
// from the FIFO.
func (d *Device) TxStartConditionSet(c TxStartCondition) error {
	return d.WriteMasked(regFifoThresh, byte(c), byte(txStartConditionMask))
}

// PayloadLengthSet sets the payload length register: the maximum length in
// variable-length mode, the fixed length otherwise.
func (d *Device) PayloadLengthSet(length byte) error {
	return d.Write(regPayloadLength, []byte{length})
}

// PacketFormatSet selects fixed- or variable-length packet framing.
func (d *Device) PacketFormatSet(f PacketFormat) error {
	return d.WriteMasked(regPacketConfig1, byte(f), packetFormatMask)
}

// AddressFilterSet selects how incoming packets are filtered by
// destination address.
func (d *Device) AddressFilterSet(f AddressFilter) error {
	return d.WriteMasked(regPacketConfig1, byte(f), byte(addressFilterMask))
}

// NodeAddressSet sets this radio's own address and caches it.
func (d *Device) NodeAddressSet(address byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeLocked(regNodeAddr, []byte{address}); err != nil {
		return err
	}
	d.config.NodeAddress = address
	return nil
}

// NodeAddressGet returns the cached node address.
func (d *Device) NodeAddressGet() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.NodeAddress
}

// BroadcastAddressSet sets the address the chip treats as a broadcast
// destination when FilterNodeBroadcast is active.
func (d *Device) BroadcastAddressSet(address byte) error {
	return d.Write(regBroadcastAddr, []byte{address})
}

// SyncValueSet installs a 1-8 byte sync word and its size field.
func (d *Device) SyncValueSet(value []byte) error {
	if err := d.Write(regSyncValue1, value); err != nil {
		return err
	}
	size := byte(len(value)-1) << syncSizeOffset
	return d.WriteMasked(regSyncConfig, size, syncSizeMask)
}

// CrcAutoclearSet controls whether the chip clears the FIFO automatically
// on a failed CRC check. The register field is actually "CrcAutoClearOff"
// (0 = autoclear enabled); set=true writes 0 into that bit.
func (d *Device) CrcAutoclearSet(set bool) error {
	var value byte
	if !set {
		value = crcAutoclearMask
	}
	return d.WriteMasked(regPacketConfig1, value, crcAutoclearMask)
}

// DcFreeSet selects the DC-free line coding applied to the payload.
func (d *Device) DcFreeSet(setting DcFreeSetting) error {
	return d.WriteMasked(regPacketConfig1, byte(setting), byte(dcFreeMask))
}

// DagcSet selects the continuous-mode fade-margin improvement level.
func (d *Device) DagcSet(setting DagcSetting) error {
	return d.Write(regTestDAGC, []byte{byte(setting)})
}
