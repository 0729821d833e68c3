package rdp

import (
	"context"
	"time"

	rfm69 "github.com/rfnode/rfm69rdp"
)

// Receive waits for a session to arrive and assembles its payload into
// buffer. It answers the RBT handshake, accumulates data packets
// in-order or out-of-order, schedules RACKs for whatever is still
// missing, and restarts the handshake wait if a new RBT preempts the
// session in progress.
func (c *Context) Receive(ctx context.Context, buffer []byte) (*Report, error) {
	previousMode := c.radio.Mode()
	defer c.radio.ModeSet(previousMode)

	rxAddress := c.radio.NodeAddressGet()

	report := &Report{
		RxAddress:    rxAddress,
		ReturnStatus: StatusTimeout,
	}

	sessionDeadline := c.clock.Now().Add(c.rxTimeout)
	header := make([]byte, headerSize)
	packet := make([]byte, rfm69.FIFOSize)

restartHandshake:
	for {
		if c.clock.Now().After(sessionDeadline) {
			return report, nil
		}
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		if err := c.radio.ModeSet(rfm69.ModeReceive); err != nil {
			return report, err
		}

		ready, err := c.radio.Irq2FlagState(rfm69.Irq2PayloadReady)
		if err != nil {
			return report, err
		}
		if !ready {
			c.clock.Sleep(time.Microsecond)
			continue
		}

		if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
			return report, err
		}

		h, err := c.radio.FIFORead(headerSize)
		if err != nil {
			return report, err
		}
		copy(header, h)

		if header[headerFlags]&flagRBT == 0 {
			if _, err := c.radio.FIFORead(int(header[headerPacketSize]) - headerEffectiveSize); err != nil {
				return report, err
			}
			continue
		}

		report.RbtReceived++

		sizeBytes, err := c.radio.FIFORead(4)
		if err != nil {
			return report, err
		}
		payloadSize := int(sizeBytes[0])<<24 | int(sizeBytes[1])<<16 | int(sizeBytes[2])<<8 | int(sizeBytes[3])

		txAddress := header[headerTxAddress]
		seq := header[headerSeqNumber] + 1

		buildHeader(header, headerEffectiveSize, txAddress, rxAddress, flagRBT|flagACK, seq)
		if err := c.radio.FIFOWrite(header); err != nil {
			return report, err
		}
		if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
			return report, err
		}
		if err := c.blockUntilPacketSent(ctx); err != nil {
			return report, err
		}

		report.PayloadSize = payloadSize
		report.TxAddress = txAddress
		report.AcksSent++

		n := numPackets(payloadSize)
		seqStart := seq + 1
		seqMax := seqStart + byte(n) - 1

		received := make([]bool, n)
		missing := n
		bytesReceived := 0

		rackDeadline := c.clock.Now().Add(c.baudProfile.perPacketDelay * time.Duration(missing))

		for missing > 0 {
			if c.clock.Now().After(sessionDeadline) {
				return report, nil
			}
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			default:
			}

			if c.clock.Now().After(rackDeadline) {
				if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
					return report, err
				}

				size := missing
				if size > PayloadMax {
					size = PayloadMax
				}

				buildHeader(header, headerEffectiveSize+byte(size), txAddress, rxAddress, flagRACK, seqMax)
				if err := c.radio.FIFOWrite(header); err != nil {
					return report, err
				}

				missingSeqs := make([]byte, 0, size)
				for i := 0; i < n && len(missingSeqs) < size; i++ {
					if received[i] {
						continue
					}
					missingSeqs = append(missingSeqs, byte(i)+seqStart)
				}
				if err := c.radio.FIFOWrite(missingSeqs); err != nil {
					return report, err
				}

				if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
					return report, err
				}
				rackDeadline = c.clock.Now().Add(c.baudProfile.perPacketDelay * time.Duration(missing))
				if err := c.blockUntilPacketSent(ctx); err != nil {
					return report, err
				}
				report.RacksSent++
			}

			if err := c.radio.ModeSet(rfm69.ModeReceive); err != nil {
				return report, err
			}

			ready, err := c.radio.Irq2FlagState(rfm69.Irq2PayloadReady)
			if err != nil {
				return report, err
			}
			if !ready {
				c.clock.Sleep(time.Microsecond)
				continue
			}

			h, err := c.radio.FIFORead(headerSize)
			if err != nil {
				return report, err
			}
			copy(packet, h)

			messageSize := int(packet[headerPacketSize]) - headerEffectiveSize
			p, err := c.radio.FIFORead(messageSize)
			if err != nil {
				return report, err
			}
			copy(packet[payloadBegin:], p)

			if packet[headerTxAddress] != txAddress {
				continue
			}

			if packet[headerFlags]&flagRBT != 0 {
				continue restartHandshake
			}

			if packet[headerFlags]&flagData == 0 {
				continue
			}

			packetNum := packet[headerSeqNumber]
			if packetNum < seqStart || packetNum > seqMax {
				continue
			}

			if packet[headerFlags]&flagRACK != 0 && packetNum == seqStart {
				report.RackRequestsReceived++
				rackDeadline = c.clock.Now()
				continue
			}

			idx := int(packetNum - seqStart)
			if received[idx] {
				continue
			}

			offset := PayloadMax * idx
			if offset+messageSize > len(buffer) {
				// Checked against the destination slice itself, not the
				// running byte total: out-of-order delivery can land a
				// high-index packet before enough bytes have accumulated
				// to trip a cumulative-count check, which would otherwise
				// let this copy run past the end of an undersized buffer.
				report.ReturnStatus = StatusBufferOverflow
				return report, nil
			}

			received[idx] = true
			missing--

			bytesReceived += messageSize
			report.DataPacketsReceived++
			report.BytesReceived = bytesReceived

			copy(buffer[offset:offset+messageSize], packet[payloadBegin:payloadBegin+messageSize])
		}

		if err := c.radio.ModeSet(rfm69.ModeStandby); err != nil {
			return report, err
		}

		buildHeader(header, headerEffectiveSize, txAddress, rxAddress, flagRACK|flagOK, seqMax)
		if err := c.radio.FIFOWrite(header); err != nil {
			return report, err
		}
		if err := c.radio.ModeSet(rfm69.ModeTransmit); err != nil {
			return report, err
		}
		if err := c.blockUntilPacketSent(ctx); err != nil {
			return report, err
		}

		report.ReturnStatus = StatusOK
		return report, nil
	}
}
