package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadMP3_Invalid(t *testing.T) {
	_, _, err := ReadMP3(bytes.NewReader([]byte("definitely not an mp3 stream")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDownmixStereo16(t *testing.T) {
	frames := []int16{1000, 3000, -10, -20, -32768, -32768}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, frames)
	// trailing partial frame
	buf.Write([]byte{0x01, 0x02})

	got := downmixStereo16(buf.Bytes())
	want := []int16{2000, -15, -32768}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
