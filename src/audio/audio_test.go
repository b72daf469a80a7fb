package audio

import (
	"fmt"
	"testing"
	"time"

	"github.com/jinjor/fm-synth/src/fm"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func TestReadIsSilentBeforeNotes(t *testing.T) {
	audio := newAudio(NewEngine(sampleRate), nil)
	defer func() { expectNoError(t, audio.Close()) }()
	_, err := fm.NewSynth(audio, nil)
	expectNoError(t, err)
	out := make([]byte, bufferSizeInBytes)
	n, err := audio.Read(out)
	expectNoError(t, err)
	if n != len(out) {
		t.Fatalf("expected %d bytes, got %d", len(out), n)
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("expected silence, got %d at %d", b, i)
		}
	}
}

func TestWriteBufferClips(t *testing.T) {
	buf := make([]byte, 2*bytesPerSample)
	writeBuffer([]float64{2, -2}, buf, 0)
	if hi, lo := buf[1], buf[0]; hi != 0x7f || lo != 0xff {
		t.Fatalf("expected max sample, got %x %x", hi, lo)
	}
	if v := int16(uint16(buf[bytesPerSample]) | uint16(buf[bytesPerSample+1])<<8); v != -32767 {
		t.Fatalf("expected min sample, got %d", v)
	}
}

func TestBenchmark(t *testing.T) {
	polyphony := 10
	times := 100

	audio := newAudio(NewEngine(sampleRate), nil)
	defer func() { expectNoError(t, audio.Close()) }()
	o := fm.DefaultOptions()
	o.Voices = polyphony
	o.Delay = true
	s, err := fm.NewSynth(audio, o)
	expectNoError(t, err)
	out := make([]byte, bufferSizeInBytes)
	_, err = audio.Read(out)
	expectNoError(t, err)
	for n := 0; n < polyphony; n++ {
		s.Play(60+n, 100, 2, 0.1)
	}
	start := time.Now()
	for n := 0; n < times; n++ {
		_, err = audio.Read(out)
		expectNoError(t, err)
	}
	averageProcessTime := float64(time.Since(start).Microseconds()) / float64(times) / 1000
	fmt.Printf("average process time: %.2fms\n", averageProcessTime)
}
