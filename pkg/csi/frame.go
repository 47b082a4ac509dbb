// Package csi provides WiFi Channel State Information capture: a lock-free
// single-producer/single-consumer frame ring buffer and the controller state
// machine that mediates enable, disable and reconfiguration against a radio
// driver backend.
//
// The producer side is the driver's frame callback, which may run in a
// latency-critical context; the consumer side is ordinary application code.
// Neither side blocks, and the controller guarantees the callback is never
// active while the buffer it writes into is being replaced.
package csi

// MaxDataLen is the maximum number of CSI samples per frame:
// HT20 with 64 subcarriers x 2 (I, Q).
const MaxDataLen = 128

// Frame is one captured CSI record. It is a plain value type with a bounded
// inline payload; frames are copied whole on write and on read, so a frame
// returned to a consumer is never shared with the producer.
type Frame struct {
	// RSSI is the received signal strength in dBm.
	RSSI int8

	// Rate is the PHY data rate index.
	Rate uint8

	// MAC is the transmitter hardware address.
	MAC [6]byte

	// TimestampUS is the host clock at ingest, in microseconds.
	TimestampUS uint32

	// Data holds the raw CSI samples (interleaved I/Q as int8).
	// Only the first Len entries are meaningful.
	Data [MaxDataLen]int8

	// Len is the used length of Data.
	Len uint16

	SigMode          uint8  // Signal mode (legacy, HT, VHT)
	MCS              uint8  // MCS index
	CWB              uint8  // Channel bandwidth (0 = 20MHz, 1 = 40MHz)
	Smoothing        uint8  // Smoothing applied
	NotSounding      uint8  // Not a sounding frame
	Aggregation      uint8  // AMPDU aggregation
	STBC             uint8  // Space-time block coding
	FECCoding        uint8  // LDPC FEC
	SGI              uint8  // Short guard interval
	NoiseFloor       int8   // Noise floor in dBm
	AMPDUCount       uint16 // AMPDU count
	Channel          uint8  // Primary channel
	SecondaryChannel uint8  // Secondary channel position
	LocalTimestamp   uint32 // Radio hardware timestamp
	Antenna          uint16 // Receiving antenna
	SigLen           uint16 // Signal length in bytes
	RXState          uint32 // Receiver state
}

// Samples returns the used portion of the CSI payload as a slice.
// The slice aliases the frame's inline array; copy it if the frame value
// will be reused.
func (f *Frame) Samples() []int8 {
	n := int(f.Len)
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return f.Data[:n]
}
