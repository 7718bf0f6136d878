package bytecodec

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		n    int
		v    uint64
	}{
		{"width1 max", 1, 0xFF},
		{"width2", 2, 0xBEEF},
		{"width3", 3, 0x123456},
		{"width4", 4, 0xDEADBEEF},
		{"width8 max", 8, 0xFFFFFFFFFFFFFFFF},
		{"width5 zero", 5, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, tc.n+4) // padding to catch overruns
			PutUint(buf, 1, tc.v, tc.n)
			got := ReadUint(buf, 1, tc.n)
			if got != tc.v {
				t.Errorf("round-trip mismatch: put %d, got %d", tc.v, got)
			}
		})
	}
}

func TestPutUintBigEndian(t *testing.T) {
	buf := make([]byte, 4)
	PutUint(buf, 0, 0x01020304, 4)
	want := []byte{0x01, 0x02, 0x03, 0x04}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("byte %d: got 0x%02X, want 0x%02X", i, buf[i], want[i])
		}
	}
}

func TestPutUintOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for value overflowing width")
		}
	}()
	buf := make([]byte, 1)
	PutUint(buf, 0, 256, 1)
}

func TestMinWidth(t *testing.T) {
	tests := []struct {
		max  uint64
		want int
	}{
		{0, 1},
		{255, 1},
		{256, 2},
		{65535, 2},
		{65536, 3},
		{1<<32 - 1, 4},
		{1 << 32, 5},
	}
	for _, tc := range tests {
		if got := MinWidth(tc.max); got != tc.want {
			t.Errorf("MinWidth(%d) = %d, want %d", tc.max, got, tc.want)
		}
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	vals := []float64{0, 1.5, -3.25, 3.14159265358979}
	for _, v := range vals {
		PutFloat64(buf, 0, v)
		if got := ReadFloat64(buf, 0); got != v {
			t.Errorf("float round-trip: put %v, got %v", v, got)
		}
	}
}
