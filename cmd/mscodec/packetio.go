package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// packetWriter frames every Write as one packet behind a big-endian uint16
// length.
type packetWriter struct {
	w io.Writer
}

func (pw packetWriter) Write(packet []byte) (int, error) {
	if len(packet) > math.MaxUint16 {
		return 0, fmt.Errorf("packet of %d bytes exceeds framing limit", len(packet))
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(packet)))
	if _, err := pw.w.Write(hdr[:]); err != nil {
		return 0, err
	}
	return pw.w.Write(packet)
}

// readPacket reads one packet written by packetWriter. It returns io.EOF at a
// clean end of input.
func readPacket(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated packet header: %w", err)
		}
		return nil, err
	}
	packet := make([]byte, binary.BigEndian.Uint16(hdr[:]))
	if _, err := io.ReadFull(r, packet); err != nil {
		return nil, fmt.Errorf("truncated packet: %w", err)
	}
	return packet, nil
}
