// csidump polls a running csid daemon and prints captured frames to stdout,
// one line per frame, suitable for piping into analysis scripts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csikit/go-csi/internal/httpc"
)

type frame struct {
	RSSI           int8    `json:"rssi"`
	Channel        uint8   `json:"channel"`
	MCS            uint8   `json:"mcs"`
	NoiseFloor     int8    `json:"noise_floor"`
	LocalTimestamp uint32  `json:"local_timestamp"`
	TimestampUS    uint32  `json:"timestamp_us"`
	MAC            [6]byte `json:"mac"`
	SigLen         uint16  `json:"sig_len"`
	Data           []int8  `json:"data"`
}

type batch struct {
	Frames  []frame `json:"frames"`
	Dropped uint32  `json:"dropped"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8090", "csid base URL")
	interval := flag.Duration("interval", 100*time.Millisecond, "poll interval")
	max := flag.Int("max", 64, "frames per poll")
	raw := flag.Bool("raw", false, "include the CSI sample payload")
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var lastDropped uint32
	for {
		select {
		case <-sigChan:
			return
		case <-ticker.C:
			b, err := poll(*baseURL, *max)
			if err != nil {
				fmt.Fprintf(os.Stderr, "poll: %v\n", err)
				continue
			}
			for i := range b.Frames {
				printFrame(&b.Frames[i], *raw)
			}
			if b.Dropped != lastDropped {
				fmt.Fprintf(os.Stderr, "dropped: %d\n", b.Dropped)
				lastDropped = b.Dropped
			}
		}
	}
}

func poll(baseURL string, max int) (*batch, error) {
	resp, err := httpc.Get(fmt.Sprintf("%s/api/csi/frames?max=%d", baseURL, max))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var b batch
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func printFrame(f *frame, raw bool) {
	fmt.Printf("%d ch=%d rssi=%d nf=%d mcs=%d sig_len=%d mac=%02x:%02x:%02x:%02x:%02x:%02x",
		f.TimestampUS, f.Channel, f.RSSI, f.NoiseFloor, f.MCS, f.SigLen,
		f.MAC[0], f.MAC[1], f.MAC[2], f.MAC[3], f.MAC[4], f.MAC[5])
	if raw {
		fmt.Printf(" data=%v", f.Data)
	}
	fmt.Println()
}
