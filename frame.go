package flipdot

import "fmt"

// RS-485 framing bytes.
const (
	frameDelimiter = 0xFF // start and end of frame
	frameEscape    = 0xFE // checksum escape prefix

	escapedEscape    = 0x00 // 0xFE is sent as 0xFE 0x00
	escapedDelimiter = 0x01 // 0xFF is sent as 0xFE 0x01
)

// Checksum is the sum of the address and payload bytes, modulo 256.
func Checksum(address byte, payload []byte) byte {
	sum := address
	for _, b := range payload {
		sum += b
	}
	return sum
}

// Frame returns the wire bytes for payload addressed to address.
func Frame(address byte, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, len(payload)+5), address, payload)
}

// AppendFrame appends the framed payload to dst:
//
//	0xFF address payload... checksum 0xFF
//
// A checksum equal to one of the framing bytes is escaped: 0xFE becomes
// 0xFE 0x00 and 0xFF becomes 0xFE 0x01. Payload bytes are never escaped.
func AppendFrame(dst []byte, address byte, payload []byte) []byte {
	dst = append(dst, frameDelimiter, address)
	dst = append(dst, payload...)
	switch sum := Checksum(address, payload); sum {
	case frameEscape:
		dst = append(dst, frameEscape, escapedEscape)
	case frameDelimiter:
		dst = append(dst, frameEscape, escapedDelimiter)
	default:
		dst = append(dst, sum)
	}
	return append(dst, frameDelimiter)
}

// Unframe validates a single frame and returns its address and payload.
//
// An escaped checksum looks like a payload ending in 0xFE followed by a plain
// 0x00 or 0x01 checksum; at most one of the two readings has a matching sum,
// so the checksum decides.
func Unframe(wire []byte) (address byte, payload []byte, err error) {
	if len(wire) < 4 || wire[0] != frameDelimiter || wire[len(wire)-1] != frameDelimiter {
		return 0, nil, fmt.Errorf("%w: % x", ErrFrame, wire)
	}

	address = wire[1]
	body := wire[2 : len(wire)-1] // payload and checksum

	if n := len(body); n >= 2 && body[n-2] == frameEscape {
		var sum byte
		switch body[n-1] {
		case escapedEscape:
			sum = frameEscape
		case escapedDelimiter:
			sum = frameDelimiter
		}
		if sum != 0 && Checksum(address, body[:n-2]) == sum {
			return address, body[:n-2], nil
		}
	}

	n := len(body)
	if sum := body[n-1]; Checksum(address, body[:n-1]) != sum {
		return 0, nil, fmt.Errorf("%w: got %#02x, expected %#02x", ErrChecksum, sum, Checksum(address, body[:n-1]))
	}
	return address, body[:n-1], nil
}
