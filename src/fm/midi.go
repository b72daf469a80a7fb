package fm

import (
	"context"
	"log"
)

const commandNoteOn = 0x9

// ----- MIDI ----- //

// Message is a decoded 3-byte channel message.
type Message struct {
	Command int // high nibble of the status byte
	Channel int // 1-16
	Data1   int
	Data2   int
}

// DecodeMessage decodes a 3-byte message. Anything else is rejected.
func DecodeMessage(data []byte) (Message, bool) {
	if len(data) != 3 {
		return Message{}, false
	}
	status := data[0]
	return Message{
		Command: int(status >> 4),
		Channel: int(status&0xf) + 1,
		Data1:   int(data[1]),
		Data2:   int(data[2]),
	}, true
}

// HandleMidi plays note-on messages on the synth's channel with the
// default decay and the current output level. Everything else is dropped.
// It reports whether a note was played.
func (s *Synth) HandleMidi(data []byte) bool {
	m, ok := DecodeMessage(data)
	if !ok || m.Command != commandNoteOn {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Channel != s.channel {
		return false
	}
	s.play(m.Data1, m.Data2, s.decay, s.outputGain)
	return true
}

// Listen feeds messages from in to HandleMidi until in is closed or ctx
// is done.
func (s *Synth) Listen(ctx context.Context, in <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			log.Println("Listen() interrupted")
			return nil
		case data, ok := <-in:
			if !ok {
				log.Println("MIDI IN closed")
				return nil
			}
			s.HandleMidi(data)
		}
	}
}
