// Package bridge implements csi.Driver over a websocket connection to a
// remote capture daemon, typically the firmware bridge running next to the
// radio. Control operations are request/acknowledge round trips; captured
// frames arrive as events on the same connection and fan into the registered
// frame callback from the client's single read-loop goroutine, which keeps
// the single-producer discipline of the ring buffer intact.
package bridge

import "github.com/csikit/go-csi/pkg/csi"

// Message types on the bridge connection.
const (
	typeConfig  = "config"
	typeCapture = "capture"
	typeAck     = "ack"
	typeFrame   = "frame"
)

// envelope is the wire format for every bridge message. Only the fields
// relevant to Type are populated.
type envelope struct {
	Type string `json:"type"`

	// ID correlates a control request with its ack.
	ID string `json:"id,omitempty"`

	// Config accompanies a "config" request.
	Config *csi.Config `json:"config,omitempty"`

	// Enabled accompanies a "capture" request.
	Enabled *bool `json:"enabled,omitempty"`

	// OK and Error carry the result on an "ack".
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`

	// Frame carries a captured frame on a "frame" event.
	Frame *wireFrame `json:"frame,omitempty"`
}

// wireFrame is the JSON shape of a captured frame as sent by the bridge
// daemon. Field names follow the firmware's conventions.
type wireFrame struct {
	RSSI             int8    `json:"rssi"`
	Rate             uint8   `json:"rate"`
	SigMode          uint8   `json:"sig_mode"`
	MCS              uint8   `json:"mcs"`
	CWB              uint8   `json:"cwb"`
	Smoothing        uint8   `json:"smoothing"`
	NotSounding      uint8   `json:"not_sounding"`
	Aggregation      uint8   `json:"aggregation"`
	STBC             uint8   `json:"stbc"`
	FECCoding        uint8   `json:"fec_coding"`
	SGI              uint8   `json:"sgi"`
	NoiseFloor       int8    `json:"noise_floor"`
	AMPDUCount       uint16  `json:"ampdu_cnt"`
	Channel          uint8   `json:"channel"`
	SecondaryChannel uint8   `json:"secondary_channel"`
	LocalTimestamp   uint32  `json:"timestamp"`
	Antenna          uint16  `json:"ant"`
	SigLen           uint16  `json:"sig_len"`
	RXState          uint32  `json:"rx_state"`
	MAC              [6]byte `json:"mac"`
	Data             []int8  `json:"data"`
}

// toRaw converts the wire frame to the driver callback shape. The Data slice
// is handed over directly; the callback contract says the consumer copies out
// before returning, and the read loop never reuses the slice.
func (w *wireFrame) toRaw() csi.RawFrame {
	return csi.RawFrame{
		RSSI:             w.RSSI,
		Rate:             w.Rate,
		SigMode:          w.SigMode,
		MCS:              w.MCS,
		CWB:              w.CWB,
		Smoothing:        w.Smoothing,
		NotSounding:      w.NotSounding,
		Aggregation:      w.Aggregation,
		STBC:             w.STBC,
		FECCoding:        w.FECCoding,
		SGI:              w.SGI,
		NoiseFloor:       w.NoiseFloor,
		AMPDUCount:       w.AMPDUCount,
		Channel:          w.Channel,
		SecondaryChannel: w.SecondaryChannel,
		LocalTimestamp:   w.LocalTimestamp,
		Antenna:          w.Antenna,
		SigLen:           w.SigLen,
		RXState:          w.RXState,
		MAC:              w.MAC,
		Data:             w.Data,
	}
}
