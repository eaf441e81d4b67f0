package flipdot

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestFrame(t *testing.T) {
	tests := []struct {
		name    string
		address byte
		payload []byte
		want    []byte
	}{
		{"plain", 0x06, []byte{0x01}, []byte{0xff, 0x06, 0x01, 0x07, 0xff}},
		{"empty", 0x06, nil, []byte{0xff, 0x06, 0x06, 0xff}},
		{"wrap", 0x06, []byte{0xff, 0x02}, []byte{0xff, 0x06, 0xff, 0x02, 0x07, 0xff}},
		{"checksum fe", 0x06, []byte{0xf8}, []byte{0xff, 0x06, 0xf8, 0xfe, 0x00, 0xff}},
		{"checksum ff", 0x06, []byte{0xf9}, []byte{0xff, 0x06, 0xf9, 0xfe, 0x01, 0xff}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if v := Frame(test.address, test.payload); !bytes.Equal(v, test.want) {
				t.Errorf("expected % x, got % x", test.want, v)
			}
		})
	}
}

func TestAppendFrame(t *testing.T) {
	dst := []byte{0xaa}
	dst = AppendFrame(dst, 0x06, []byte{0x01})
	if want := []byte{0xaa, 0xff, 0x06, 0x01, 0x07, 0xff}; !bytes.Equal(dst, want) {
		t.Errorf("expected % x, got % x", want, dst)
	}
}

func TestUnframe(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		address := byte(r.Intn(256))
		payload := make([]byte, r.Intn(16))
		r.Read(payload)

		a, p, err := Unframe(Frame(address, payload))
		if err != nil {
			t.Fatalf("%02x % x: %v", address, payload, err)
		}
		if a != address || !bytes.Equal(p, payload) {
			t.Fatalf("expected %02x % x, got %02x % x", address, payload, a, p)
		}
	}
}

func TestUnframeAmbiguous(t *testing.T) {
	// A payload ending in 0xFE with a plain 0x00 or 0x01 checksum looks
	// exactly like an escaped checksum on the wire.
	tests := []struct {
		name    string
		address byte
		payload []byte
	}{
		{"plain 00", 0x01, []byte{0x01, 0xfe}},
		{"plain 01", 0x02, []byte{0x01, 0xfe}},
		{"escaped fe", 0x06, []byte{0xf8}},
		{"escaped ff", 0x06, []byte{0xf9}},
		{"escaped after fe", 0x00, []byte{0xfe, 0x01, 0xff}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wire := Frame(test.address, test.payload)
			a, p, err := Unframe(wire)
			if err != nil {
				t.Fatalf("% x: %v", wire, err)
			}
			if a != test.address || !bytes.Equal(p, test.payload) {
				t.Errorf("% x: expected %02x % x, got %02x % x", wire, test.address, test.payload, a, p)
			}
		})
	}
}

func TestUnframeErrors(t *testing.T) {
	tests := []struct {
		name string
		wire []byte
		want error
	}{
		{"short", []byte{0xff, 0x06, 0xff}, ErrFrame},
		{"start", []byte{0x00, 0x06, 0x06, 0xff}, ErrFrame},
		{"end", []byte{0xff, 0x06, 0x06, 0x00}, ErrFrame},
		{"checksum", []byte{0xff, 0x06, 0x01, 0x08, 0xff}, ErrChecksum},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, _, err := Unframe(test.wire); !errors.Is(err, test.want) {
				t.Errorf("expected %v, got %v", test.want, err)
			}
		})
	}
}
