// Package rdp implements a stop-and-wait-with-selective-repeat reliable
// datagram protocol over an rfm69.Device's variable-length packet mode. A
// session establishes itself with a three-way handshake (RBT, ACK, data)
// and terminates with a RACK exchange whose payload enumerates missing
// sequence numbers for retransmission.
package rdp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	rfm69 "github.com/rfnode/rfm69rdp"
)

var (
	borrowedMu sync.Mutex
	borrowed   = map[*rfm69.Device]bool{}
)

// Context owns a borrowed radio, a receive buffer and payload supplied per
// call, a baud profile, independently settable transmit/receive timeouts,
// and a retry budget. Each Transmit or Receive call returns its own Report;
// the Context does not keep a copy of it. Exactly one Context may own a
// given *rfm69.Device at a time, until Close releases it.
type Context struct {
	radio *rfm69.Device
	clock rfm69.Clock

	baud        Baud
	baudProfile baudProfile

	txTimeout time.Duration
	rxTimeout time.Duration
	retries   int

	closed bool
}

// NewContext borrows radio and applies the RDP-specific configuration the
// protocol needs on top of whatever baseline rfm69.NewWithHardware already
// set: whitening, variable-length packets, a payload length of PayloadMax,
// and sleep mode. radio must already be initialized.
func NewContext(radio *rfm69.Device) (*Context, error) {
	if radio == nil {
		return nil, errors.New("rdp: nil radio")
	}

	borrowedMu.Lock()
	if borrowed[radio] {
		borrowedMu.Unlock()
		return nil, ErrAlreadyBorrowed
	}
	borrowed[radio] = true
	borrowedMu.Unlock()

	c := &Context{
		radio:     radio,
		clock:     radio.Clock(),
		txTimeout: 100 * time.Millisecond,
		rxTimeout: 3 * time.Second,
		retries:   5,
	}

	if err := radio.DcFreeSet(rfm69.DcFreeWhitening); err != nil {
		return nil, err
	}
	if err := radio.PacketFormatSet(rfm69.PacketVariable); err != nil {
		return nil, err
	}
	if err := radio.PayloadLengthSet(PayloadMax); err != nil {
		return nil, err
	}
	if err := radio.ModeSet(rfm69.ModeSleep); err != nil {
		return nil, err
	}

	if err := c.BaudSet(Baud57_6); err != nil {
		return nil, err
	}

	return c, nil
}

// BaudSet applies a baud profile's chip writes (frequency deviation,
// bitrate, and receive bandwidth mantissa/exponent). If any write fails
// the Context's baud selection is left at its previous value.
func (c *Context) BaudSet(b Baud) error {
	profile, ok := baudProfiles[b]
	if !ok {
		return fmt.Errorf("rdp: unknown baud profile %d", b)
	}

	if err := c.radio.FdevSet(profile.fdevHz); err != nil {
		return err
	}
	if err := c.radio.BitrateSet(profile.bitrate); err != nil {
		return err
	}
	if err := c.radio.RxBwSet(profile.rxBwMantissa, profile.rxBwExponent); err != nil {
		return err
	}

	c.baud = b
	c.baudProfile = profile
	return nil
}

// TxTimeoutSet sets the base per-attempt timeout used during the RBT
// handshake and the RACK loop.
func (c *Context) TxTimeoutSet(d time.Duration) { c.txTimeout = d }

// TxTimeoutGet returns the current transmit timeout.
func (c *Context) TxTimeoutGet() time.Duration { return c.txTimeout }

// RxTimeoutSet sets the absolute wall-clock deadline for a whole Receive
// call.
func (c *Context) RxTimeoutSet(d time.Duration) { c.rxTimeout = d }

// RxTimeoutGet returns the current receive session timeout.
func (c *Context) RxTimeoutGet() time.Duration { return c.rxTimeout }

// RetriesSet sets the retry budget consumed by the RBT handshake and by
// the RACK loop.
func (c *Context) RetriesSet(n int) { c.retries = n }

// Close releases this Context's claim on its radio, letting a later
// NewContext call borrow the same *rfm69.Device. It does not touch the
// radio's mode or configuration. Close is idempotent.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	borrowedMu.Lock()
	delete(borrowed, c.radio)
	borrowedMu.Unlock()
	return nil
}
