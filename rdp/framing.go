package rdp

import (
	"time"

	rfm69 "github.com/rfnode/rfm69rdp"
)

// Header field offsets. packet_size excludes itself, matching the chip's
// own variable-length framing convention.
const (
	headerPacketSize = 0
	headerRxAddress  = 1
	headerTxAddress  = 2
	headerFlags      = 3
	headerSeqNumber  = 4
	headerSize       = 5

	headerEffectiveSize = headerSize - 1
	payloadBegin        = headerSize
)

// PayloadMax is the largest payload slice a single data packet can carry:
// the chip's FIFO capacity minus the header minus the length byte, which
// the chip convention excludes from its own count.
const PayloadMax = rfm69.FIFOSize - headerSize - 1

const (
	seqNumRandLimit = 25
	// txPacketsMax is the largest number of data packets one session can
	// carry: 256 possible sequence values, minus the random starting
	// range, minus one slot reserved for the terminal RACK/OK exchange.
	txPacketsMax = 256 - seqNumRandLimit - 1
)

const (
	flagRBT  byte = 0x80
	flagData byte = 0x40
	flagACK  byte = 0x20
	flagRACK byte = 0x10
	flagOK   byte = 0x08
)

// Baud selects a transmit/receive baud profile. Both ends of a link must
// agree on the same profile.
type Baud int

// Baud57_6 is the only profile currently defined: 57.6 kbit/s.
const Baud57_6 Baud = iota

type baudProfile struct {
	fdevHz         uint32
	bitrate        rfm69.ModemBitrate
	perPacketDelay time.Duration
	rxBwMantissa   rfm69.RxBwMantissa
	rxBwExponent   byte
}

var baudProfiles = map[Baud]baudProfile{
	Baud57_6: {
		fdevHz:         70000,
		bitrate:        rfm69.ModemBitrate57_6,
		perPacketDelay: 12 * time.Millisecond,
		rxBwMantissa:   rfm69.RxBwMantissa20,
		rxBwExponent:   2,
	},
}

func buildHeader(buf []byte, packetSize, rxAddr, txAddr, flags, seq byte) {
	buf[headerPacketSize] = packetSize
	buf[headerRxAddress] = rxAddr
	buf[headerTxAddress] = txAddr
	buf[headerFlags] = flags
	buf[headerSeqNumber] = seq
}

// numPackets returns ceil(payloadSize / PayloadMax).
func numPackets(payloadSize int) int {
	n := payloadSize / PayloadMax
	if payloadSize%PayloadMax != 0 {
		n++
	}
	return n
}
