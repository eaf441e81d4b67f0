package flipdot

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		u    PixelUpdate
		want [3]byte
	}{
		{PixelUpdate{X: 0, Y: 0, On: true}, [3]byte{0x01, 0x01, 0x41}},
		{PixelUpdate{X: 0, Y: 0, On: false}, [3]byte{0x01, 0x21, 0x21}},
		{PixelUpdate{X: 30, Y: 8, On: false}, [3]byte{0x02, 0x23, 0x2a}},
		{PixelUpdate{X: 111, Y: 18, On: true}, [3]byte{0x08, 0x1f, 0x55}},
	}
	for _, test := range tests {
		t.Run(test.u.String(), func(t *testing.T) {
			if v := DefaultGeometry.Encode(test.u); v != test.want {
				t.Errorf("expected % x, got % x", test.want, v)
			}
		})
	}
}

func TestEncodePolarity(t *testing.T) {
	g := DefaultGeometry
	for x := 0; x < g.Cols; x++ {
		for y := 0; y < g.Rows; y++ {
			on := g.Encode(PixelUpdate{X: x, Y: y, On: true})
			off := g.Encode(PixelUpdate{X: x, Y: y, On: false})

			if on[0] != off[0] {
				t.Fatalf("(%d,%d): panel select differs: %#02x != %#02x", x, y, on[0], off[0])
			}
			if on[0] == 0 || on[0]&(on[0]-1) != 0 {
				t.Fatalf("(%d,%d): panel select %#02x is not one-hot", x, y, on[0])
			}
			if v := on[0]; v != 1<<(x/g.PanelWidth()) {
				t.Fatalf("(%d,%d): expected panel %d, got %#02x", x, y, x/g.PanelWidth(), v)
			}
			if on[1]^off[1] != colClearSide || on[1]&colClearSide != 0 {
				t.Fatalf("(%d,%d): column bytes %#02x/%#02x", x, y, on[1], off[1])
			}
			if on[2]&0x1f != off[2]&0x1f {
				t.Fatalf("(%d,%d): row address differs: %#02x/%#02x", x, y, on[2], off[2])
			}
			if on[2]&0x60 != rowSetSide || off[2]&0x60 != rowClearSide {
				t.Fatalf("(%d,%d): row bytes %#02x/%#02x", x, y, on[2], off[2])
			}
			if on[1]&0x07 == 0 || on[2]&0x07 == 0 {
				t.Fatalf("(%d,%d): decoder output 0 is reserved: % x", x, y, on)
			}
		}
	}
}

func TestGeometryValidate(t *testing.T) {
	if err := DefaultGeometry.validate(); err != nil {
		t.Fatal(err)
	}
	g := DefaultGeometry
	g.Cols = 9 * g.PanelWidth()
	if err := g.validate(); err == nil {
		t.Error("expected nine panels to be rejected")
	}
	if err := (Geometry{}).validate(); err == nil {
		t.Error("expected empty geometry to be rejected")
	}
}
