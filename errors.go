package rfm69

import "errors"

// Sentinel errors surfaced by the radio control layer. They are returned
// unwrapped, so callers can compare against them directly or with errors.Is.
var (
	// ErrRegisterTestFail is returned when the version register probed at
	// construction reads back 0x00 or 0xFF.
	ErrRegisterTestFail = errors.New("rfm69: version register test failed")
	// ErrBusUnexpectedReturn is returned when a bus transfer clocks a
	// different number of bytes than requested.
	ErrBusUnexpectedReturn = errors.New("rfm69: bus returned unexpected byte count")
	// ErrRssiBusy is returned when an RSSI reading is requested while a
	// prior measurement is still in flight.
	ErrRssiBusy = errors.New("rfm69: rssi measurement busy")
)
