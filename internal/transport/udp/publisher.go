// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"sessionkey/internal/log"
	"sessionkey/internal/transport"
)

// PacketSize is the length of every chroma packet in bytes.
const PacketSize = 4 + 8 + 4 + 4 + 12*4

/*
UDP Packet Structure (BigEndian)

+---------------------------------------------------------------------------+
| Field           | Data Type    | Size (Bytes) | Description               |
|-----------------|--------------|--------------|---------------------------|
| Sequence Number | uint32       | 4            | Monotonically increasing  |
| Timestamp       | int64        | 8            | Nanoseconds since epoch   |
| BPM             | float32      | 4            | Tempo estimate            |
| Key Confidence  | float32      | 4            | 0-100                     |
| Chroma          | [12]float32  | 48           | Pitch class profile, C..B |
+---------------------------------------------------------------------------+
*/

// Packet is the decoded form of a chroma packet.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	BPM        float32
	Confidence float32
	Chroma     [12]float32
}

// ChromaPublisher sends the chroma profile of each analysis event as one
// binary datagram. Other event types are ignored.
type ChromaPublisher struct {
	sender *Sender

	mu           sync.Mutex // Serializes packing; guards the fields below.
	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewChromaPublisher creates a publisher sending to targetAddress.
func NewChromaPublisher(targetAddress string) (*ChromaPublisher, error) {
	sender, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &ChromaPublisher{
		sender:       sender,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Send implements transport.Transport.
func (p *ChromaPublisher) Send(data any) error {
	var ev transport.AnalysisEvent
	switch v := data.(type) {
	case transport.AnalysisEvent:
		ev = v
	case *transport.AnalysisEvent:
		ev = *v
	default:
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	pkt := Packet{
		Sequence:   p.sequenceNum,
		Timestamp:  ev.Timestamp.UnixNano(),
		BPM:        float32(ev.BPM),
		Confidence: float32(ev.KeyConfidence),
	}
	if ev.Timestamp.IsZero() {
		pkt.Timestamp = time.Now().UnixNano()
	}
	for i, v := range ev.Chroma {
		pkt.Chroma[i] = float32(v)
	}

	p.packetBuffer.Reset()
	if err := binary.Write(p.packetBuffer, binary.BigEndian, pkt); err != nil {
		log.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return err
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", pkt.Sequence, p.packetBuffer.Len())
	return nil
}

// Close implements transport.Transport.
func (p *ChromaPublisher) Close() error {
	return p.sender.Close()
}

// DecodePacket parses a datagram written by ChromaPublisher.
func DecodePacket(b []byte) (Packet, error) {
	var pkt Packet
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &pkt)
	return pkt, err
}

var _ transport.Transport = (*ChromaPublisher)(nil)
