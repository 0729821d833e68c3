package rdp

import (
	"context"
	"math/rand"
	"time"

	rfm69 "github.com/rfnode/rfm69rdp"
)

// Transmit sends payload to address. It runs the RBT handshake, the bulk
// data transfer, and the RACK loop, retransmitting whatever the receiver
// reports missing until it signals OK or the retry budget is exhausted.
// ctx layers an additional cancellation path over the wall-clock deadlines
// the protocol already enforces; it is not required for the timeouts
// themselves to work.
func (c *Context) Transmit(ctx context.Context, address byte, payload []byte) (*Report, error) {
	previousMode := c.radio.Mode()
	defer c.radio.ModeSet(previousMode)

	if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
		return nil, err
	}

	txAddress := c.radio.NodeAddressGet()

	report := &Report{
		TxAddress:    txAddress,
		RxAddress:    address,
		PayloadSize:  len(payload),
		ReturnStatus: StatusTimeout,
	}

	n := numPackets(len(payload))
	if n > txPacketsMax {
		report.ReturnStatus = StatusPayloadOverflow
		return report, ErrPayloadOverflow
	}

	seq := byte(rand.Intn(seqNumRandLimit))

	header := make([]byte, headerSize)
	sizeBytes := []byte{
		byte(len(payload) >> 24),
		byte(len(payload) >> 16),
		byte(len(payload) >> 8),
		byte(len(payload)),
	}

	ackReceived := false
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
			return report, err
		}

		buildHeader(header, headerEffectiveSize+byte(len(sizeBytes)), address, txAddress, flagRBT, seq)
		if err := c.radio.FIFOWrite(header); err != nil {
			return report, err
		}
		if err := c.radio.FIFOWrite(sizeBytes); err != nil {
			return report, err
		}

		if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
			return report, err
		}
		if err := c.blockUntilPacketSent(ctx); err != nil {
			return report, err
		}
		report.RbtSent++

		// Linearly growing backoff with jitter: a quick first retry, then
		// successively slower ones with some random deviation to avoid a
		// class of timing bugs where every sender retries in lockstep.
		nextTimeout := c.txTimeout + time.Duration(attempt)*c.txTimeout + time.Duration(rand.Intn(100))*time.Millisecond
		ok, err := c.rxAck(ctx, seq+1, nextTimeout)
		if err != nil {
			return report, err
		}
		if ok {
			ackReceived = true
			report.AcksReceived++
			break
		}
	}
	if !ackReceived {
		return report, nil
	}

	seq += 2
	seqMax := seq + byte(n) - 1

	for i := 0; i < n; i++ {
		if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
			return report, err
		}

		size := PayloadMax
		if i == n-1 && len(payload)%PayloadMax != 0 {
			size = len(payload) % PayloadMax
		}
		offset := PayloadMax * i

		buildHeader(header, headerEffectiveSize+byte(size), address, txAddress, flagData, seq+byte(i))
		if err := c.radio.FIFOWrite(header); err != nil {
			return report, err
		}
		if err := c.radio.FIFOWrite(payload[offset : offset+size]); err != nil {
			return report, err
		}

		if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
			return report, err
		}
		if err := c.blockUntilPacketSent(ctx); err != nil {
			return report, err
		}

		report.BytesSent += size
		report.DataPacketsSent++
	}

	retries := c.retries
	ackPacket := make([]byte, headerSize+n)
	isOK := false
	for {
		rackTimedOut := true
		for retries > 0 {
			retries--
			got, err := c.rxRack(ctx, seqMax, c.txTimeout, ackPacket)
			if err != nil {
				return report, err
			}
			if !got {
				if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
					return report, err
				}

				buildHeader(header, headerEffectiveSize, address, txAddress, flagData|flagRACK, seq)
				if err := c.radio.FIFOWrite(header); err != nil {
					return report, err
				}

				if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
					return report, err
				}
				if err := c.blockUntilPacketSent(ctx); err != nil {
					return report, err
				}
				report.RackRequestsSent++
				continue
			}
			isOK = ackPacket[headerFlags]&flagOK != 0
			rackTimedOut = false
			break
		}
		if isOK || rackTimedOut {
			break
		}

		report.RacksReceived++

		messageSize := int(ackPacket[headerPacketSize]) - headerEffectiveSize
		for i := 0; i < messageSize; i++ {
			if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
				return report, err
			}

			packetNum := ackPacket[payloadBegin+i]
			size := PayloadMax
			if packetNum == seqMax && len(payload)%PayloadMax != 0 {
				size = len(payload) % PayloadMax
			}
			offset := PayloadMax * int(packetNum-seq)

			buildHeader(header, headerEffectiveSize+byte(size), address, txAddress, flagData, packetNum)
			if err := c.radio.FIFOWrite(header); err != nil {
				return report, err
			}
			if err := c.radio.FIFOWrite(payload[offset : offset+size]); err != nil {
				return report, err
			}

			if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
				return report, err
			}
			if err := c.blockUntilPacketSent(ctx); err != nil {
				return report, err
			}

			report.DataPacketsRetransmitted++
			report.DataPacketsSent++
		}
	}

	if isOK {
		report.ReturnStatus = StatusOK
	} else {
		// The retry budget ran out before a RACK carrying OK arrived (a
		// silent receiver, or a lost OK terminator). Data was sent but
		// delivery is unverified.
		report.ReturnStatus = StatusOKUnconfirmed
	}
	return report, nil
}

// blockUntilPacketSent spins on IRQ2.PacketSent, the only suspension point
// between writing a packet to the FIFO and it actually leaving the
// antenna.
func (c *Context) blockUntilPacketSent(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sent, err := c.radio.Irq2FlagState(rfm69.Irq2PacketSent)
		if err != nil {
			return err
		}
		if sent {
			return nil
		}
	}
}

// rxAck waits up to timeout for an RBT|ACK packet at the given sequence
// number.
func (c *Context) rxAck(ctx context.Context, seq byte, timeout time.Duration) (bool, error) {
	if err := c.radio.ModeSet(rfm69.ModeReceive); err != nil {
		return false, err
	}

	deadline := c.clock.Now().Add(timeout)
	for {
		if c.clock.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		ready, err := c.radio.Irq2FlagState(rfm69.Irq2PayloadReady)
		if err != nil {
			return false, err
		}
		if !ready {
			continue
		}

		data, err := c.radio.FIFORead(headerSize)
		if err != nil {
			return false, err
		}

		isAck := data[headerFlags]&(flagACK|flagRBT) == flagACK|flagRBT
		isSeq := data[headerSeqNumber] == seq
		if !isAck || !isSeq {
			continue
		}
		return true, nil
	}
}

// rxRack waits up to timeout for a RACK packet at the given sequence
// number, copying its header and missing-sequence payload into out.
func (c *Context) rxRack(ctx context.Context, seq byte, timeout time.Duration, out []byte) (bool, error) {
	if err := c.radio.ModeSet(rfm69.ModeReceive); err != nil {
		return false, err
	}

	deadline := c.clock.Now().Add(timeout)
	for {
		if c.clock.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		ready, err := c.radio.Irq2FlagState(rfm69.Irq2PayloadReady)
		if err != nil {
			return false, err
		}
		if !ready {
			continue
		}

		header, err := c.radio.FIFORead(headerSize)
		if err != nil {
			return false, err
		}
		copy(out, header)

		messageSize := int(header[headerPacketSize]) - headerEffectiveSize
		if messageSize > 0 {
			body, err := c.radio.FIFORead(messageSize)
			if err != nil {
				return false, err
			}
			copy(out[payloadBegin:], body)
		}

		isRack := out[headerFlags]&flagRACK != 0
		isSeq := out[headerSeqNumber] == seq
		if !isRack || !isSeq {
			continue
		}
		return true, nil
	}
}
