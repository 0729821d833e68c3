package rdp

import "errors"

var (
	// ErrAlreadyBorrowed is returned by NewContext when the given radio is
	// already owned by another Context.
	ErrAlreadyBorrowed = errors.New("rdp: radio already owned by another context")
	// ErrPayloadOverflow is returned by Transmit when the payload would
	// require more than 230 data packets.
	ErrPayloadOverflow = errors.New("rdp: payload requires more than 230 data packets")
)
