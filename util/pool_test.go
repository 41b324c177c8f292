package util

import "testing"

func TestBufPool_RoundTrip(t *testing.T) {
	buf := GetBuf()
	if buf == nil {
		t.Fatal("GetBuf returned nil")
	}
	if len(*buf) != ReadBufSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), ReadBufSize)
	}

	(*buf)[0] = 0xFF
	PutBuf(buf)

	// May or may not be the same buffer.
	buf2 := GetBuf()
	if buf2 == nil {
		t.Fatal("second GetBuf returned nil")
	}
	PutBuf(buf2)
}

func TestPutBuf_Nil(t *testing.T) {
	PutBuf(nil)
}
