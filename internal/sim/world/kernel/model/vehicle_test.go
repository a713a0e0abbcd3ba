package model

import "testing"

func TestFacingRotate(t *testing.T) {
	cases := []struct {
		f    Facing
		want Point
	}{
		{0, Point{X: 2, Y: 1}},
		{1, Point{X: -1, Y: 2}},
		{2, Point{X: -2, Y: -1}},
		{3, Point{X: 1, Y: -2}},
		{-1, Point{X: 1, Y: -2}},
	}
	for _, tc := range cases {
		if got := tc.f.Rotate(Point{X: 2, Y: 1}); got != tc.want {
			t.Fatalf("facing %d: got %+v want %+v", tc.f, got, tc.want)
		}
	}
	if Facing(1).Unit() != (Point{Y: 1}) {
		t.Fatalf("south unit wrong")
	}
}

func TestVehicleFootprint(t *testing.T) {
	v := NewVehicle("cart", []VehiclePart{
		{Type: "frame", Mount: Point{}},
		{Type: "seat", Mount: Point{}},
		{Type: "frame", Mount: Point{X: 1}},
		{Type: "wheel", Mount: Point{X: 1, Y: 1}},
	})
	if v.ID == "" {
		t.Fatalf("missing id")
	}
	v.Anchor = Tripoint{X: 10, Y: 10}
	v.Facing = 2
	fp := v.Footprint()
	if len(fp) != 3 {
		t.Fatalf("footprint=%v", fp)
	}
	if got := v.PartsAt(Tripoint{X: 10, Y: 10}); len(got) != 2 {
		t.Fatalf("parts at anchor=%v", got)
	}
	if v.PartPos(3) != (Tripoint{X: 9, Y: 9}) {
		t.Fatalf("wheel at %+v", v.PartPos(3))
	}
}
