// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	applog "soundlab/internal/log"
	"soundlab/internal/transport"
)

// HeaderSize is the fixed prefix of a spectrum packet.
const HeaderSize = 4 + 8 + 2

// Publisher sends analysis events as JSON datagrams and spectrogram frames
// as binary packets through a Sender.
type Publisher struct {
	sender *Sender

	mu          sync.Mutex // Serialises packet construction.
	sequenceNum uint32     // Monotonically increasing sequence number for spectrum packets.

	// Reused between packets to reduce allocations in PublishSpectrum.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a Publisher on top of sender.
func NewPublisher(sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return &Publisher{
		sender:       sender,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send marshals data (normally a transport.Event) to JSON and sends it as a
// single datagram.
func (p *Publisher) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode UDP event: %w", err)
	}
	return p.sender.Send(payload)
}

/*
Spectrum Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Magnitude   |       Magnitudes        |
|      (uint32)     |  (int64, ns since     |     Count     |      (N * float32)      |
|                   |       epoch)          |   (uint16)    |                         |
+-------------------+-----------------------+---------------+-------------------------+
*/

// PublishSpectrum packs one magnitude frame and sends it.
func (p *Publisher) PublishSpectrum(magnitudes []float64) error {
	if len(magnitudes) > math.MaxUint16 {
		return fmt.Errorf("spectrum frame has %d bins, packet limit is %d", len(magnitudes), math.MaxUint16)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cap(p.f32Buffer) < len(magnitudes) {
		p.f32Buffer = make([]float32, len(magnitudes))
	}
	f32 := p.f32Buffer[:len(magnitudes)]
	for i, v := range magnitudes {
		f32[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(f32)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, f32)
	}
	if err != nil {
		return fmt.Errorf("failed to pack spectrum packet: %w", err)
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	return nil
}

// Replay publishes frames one per interval, the way a live analyser would
// have emitted them. It returns early with the context error when ctx is
// cancelled.
func (p *Publisher) Replay(ctx context.Context, frames [][]float64, interval time.Duration) error {
	if interval <= 0 {
		interval = 16 * time.Millisecond // ~60Hz
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	if len(frames) == 0 {
		return nil
	}
	applog.Infof("UDPPublisher: Replaying %d frames (Interval: %s)", len(frames), interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, frame := range frames {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := p.PublishSpectrum(frame); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

// SpectrumPacket is a decoded spectrum packet.
type SpectrumPacket struct {
	Sequence   uint32
	Timestamp  int64
	Magnitudes []float32
}

// DecodeSpectrumPacket parses a packet built by PublishSpectrum.
func DecodeSpectrumPacket(b []byte) (SpectrumPacket, error) {
	if len(b) < HeaderSize {
		return SpectrumPacket{}, fmt.Errorf("packet too short: %d bytes", len(b))
	}
	pkt := SpectrumPacket{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != HeaderSize+count*4 {
		return SpectrumPacket{}, fmt.Errorf("packet length %d does not match %d magnitudes", len(b), count)
	}
	pkt.Magnitudes = make([]float32, count)
	for i := range pkt.Magnitudes {
		off := HeaderSize + i*4
		pkt.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return pkt, nil
}

// Ensure Publisher satisfies the transport interface at compile time.
var _ transport.Transport = (*Publisher)(nil)
