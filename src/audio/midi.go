package audio

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"
)

// ListenToMidiIn delivers raw messages from the MIDI IN port whose name
// contains portName (the first port when empty). Driver and device
// problems are logged and leave the channel open and silent until ctx is
// done, so the synth stays playable without MIDI.
func ListenToMidiIn(ctx context.Context, portName string) <-chan []byte {
	ch := make(chan []byte, 65536)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			<-ctx.Done()
			return
		}
		defer func() {
			err := drv.Close()
			if err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		in, err := openIn(drv, portName)
		if err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			<-ctx.Done()
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			err := in.Close()
			if err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		log.Println("start listening MIDI IN...")
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := make([]byte, len(data))
			copy(msg, data)
			select {
			case ch <- msg:
			default:
				log.Println("[WARN] MIDI IN buffer full")
			}
		}); err != nil {
			log.Println("failed to set listener: " + err.Error())
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			err := in.StopListening()
			if err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

func openIn(drv midi.Driver, portName string) (midi.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	log.Printf("MIDI IN: %v\n", names)
	i, err := selectPort(names, portName)
	if err != nil {
		return nil, err
	}
	in := ins[i]
	if err := in.Open(); err != nil {
		return nil, err
	}
	return in, nil
}

func selectPort(names []string, want string) (int, error) {
	if len(names) == 0 {
		return -1, fmt.Errorf("MIDI IN not found")
	}
	if want == "" {
		return 0, nil
	}
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), strings.ToLower(want)) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("MIDI IN %q not found in %v", want, names)
}
