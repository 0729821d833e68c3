package rdp

import "fmt"

// ReturnStatus is the final outcome of a Transmit or Receive call.
type ReturnStatus int

const (
	StatusTimeout ReturnStatus = iota
	StatusOK
	StatusOKUnconfirmed
	StatusBufferOverflow
	StatusPayloadOverflow
)

func (s ReturnStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusOKUnconfirmed:
		return "OKUnconfirmed"
	case StatusTimeout:
		return "Timeout"
	case StatusBufferOverflow:
		return "BufferOverflow"
	case StatusPayloadOverflow:
		return "PayloadOverflow"
	default:
		return "Unknown"
	}
}

// Report accumulates counters over one Transmit or Receive call. It is
// cleared at the start of every call; TxAddress/RxAddress and the return
// status reflect the outcome once the call returns.
type Report struct {
	PayloadSize              int
	BytesSent                int
	BytesReceived            int
	DataPacketsSent          int
	DataPacketsReceived      int
	DataPacketsRetransmitted int
	RbtSent                  int
	RbtReceived              int
	AcksSent                 int
	AcksReceived             int
	RacksSent                int
	RacksReceived            int
	RackRequestsSent         int
	RackRequestsReceived     int
	ReturnStatus             ReturnStatus
	TxAddress                byte
	RxAddress                byte
}

// String returns a multi-line dump of every counter.
func (r *Report) String() string {
	return fmt.Sprintf(
		"payload_size: %d\n"+
			"bytes_sent: %d\n"+
			"bytes_received: %d\n"+
			"data_packets_sent: %d\n"+
			"data_packets_received: %d\n"+
			"data_packets_retransmitted: %d\n"+
			"rbt_sent: %d\n"+
			"rbt_received: %d\n"+
			"acks_sent: %d\n"+
			"acks_received: %d\n"+
			"racks_sent: %d\n"+
			"racks_received: %d\n"+
			"rack_requests_sent: %d\n"+
			"rack_requests_received: %d\n"+
			"return_status: %s\n"+
			"tx_address: %02X\n"+
			"rx_address: %02X\n",
		r.PayloadSize, r.BytesSent, r.BytesReceived,
		r.DataPacketsSent, r.DataPacketsReceived, r.DataPacketsRetransmitted,
		r.RbtSent, r.RbtReceived,
		r.AcksSent, r.AcksReceived,
		r.RacksSent, r.RacksReceived,
		r.RackRequestsSent, r.RackRequestsReceived,
		r.ReturnStatus, r.TxAddress, r.RxAddress,
	)
}
