package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBusy,
		ErrNotLoaded,
		ErrLayerRange,
		ErrBadRequest,
		ErrRateLimit,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
	if e := NewError(ErrBusy, "full"); e.Type != TypeError || e.ProtocolVersion != Version {
		t.Fatalf("NewError: %+v", e)
	}
}
