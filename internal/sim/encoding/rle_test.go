package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 700)
	}
	in = append(in, 9, 10, 10, 10)

	out, err := DecodeRLE(EncodeRLE(in), len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_Bytes(t *testing.T) {
	in := []uint8{0, 0, 0, 3, 3, 1}
	out, err := DecodeRLE(EncodeRLE(in), len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	for i := range in {
		if out[i] != uint16(in[i]) {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_RejectsWrongLength(t *testing.T) {
	enc := EncodeRLE([]uint16{4, 4, 4, 4})
	if _, err := DecodeRLE(enc, 3); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeRLE(enc, 5); err == nil {
		t.Fatalf("expected short layer error")
	}
	if _, err := DecodeRLE("!!", 1); err == nil {
		t.Fatalf("expected base64 error")
	}
}
