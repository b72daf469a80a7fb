package audio

import (
	"context"
	"io"
	"log"

	"github.com/hajimehoshi/oto"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096

// ----- Audio ----- //

// Audio plays an Engine through the default output device.
type Audio struct {
	*Engine
	ctx        context.Context
	otoContext *oto.Context
	out        []float64 // length: samplesPerCycle
}

var _ io.Reader = (*Audio)(nil)

// NewAudio opens the output device.
func NewAudio() (*Audio, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, err
	}
	return newAudio(NewEngine(sampleRate), otoContext), nil
}

func newAudio(e *Engine, otoContext *oto.Context) *Audio {
	return &Audio{
		Engine:     e,
		ctx:        context.Background(),
		otoContext: otoContext,
		out:        make([]float64, samplesPerCycle),
	}
}

func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		frames := len(buf) / bytesPerSample
		if frames > len(a.out) {
			frames = len(a.out)
		}
		out := a.out[:frames]
		a.Render(out)
		writeBuffer(out, buf, 0)
		writeBuffer(out, buf, 1)
		return frames * bytesPerSample, nil
	}
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i, value := range out {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		switch bitDepthInBytes {
		case 1:
			const max = 127
			b := int(value * max)
			buf[bytesPerSample*i+ch] = byte(b + 128)
		case 2:
			const max = 32767
			b := int16(value * max)
			buf[bytesPerSample*i+2*ch] = byte(b)
			buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
		}
	}
}

// Close releases the output device.
func (a *Audio) Close() error {
	log.Println("Closing Audio...")
	if a.otoContext == nil {
		return nil
	}
	return a.otoContext.Close()
}

// Start plays until ctx is done.
func (a *Audio) Start(ctx context.Context) error {
	p := a.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	a.ctx = ctx

	// block until cancel() called
	if _, err := io.CopyBuffer(p, a, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}
