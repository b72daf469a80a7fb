package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jinjor/fm-synth/src/audio"
	"github.com/jinjor/fm-synth/src/fm"
)

func receiveCommands(ctx context.Context, conn net.Conn, synth *fm.Synth) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		log.Printf("received: %s\n", string(line))
		result, err := evalLine(synth, string(line))
		if err != nil {
			log.Printf("failed to run command: %v\n", err)
			result = "error " + url.QueryEscape(err.Error())
		}
		if result != "" {
			if _, err := conn.Write([]byte(result + "\n")); err != nil {
				return err
			}
		}
		line = []byte{}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func parseCommand(line string) ([]string, error) {
	lineStr := strings.Fields(line)
	for i, item := range lineStr {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		lineStr[i] = escaped
	}
	return lineStr, nil
}

func evalLine(synth *fm.Synth, line string) (string, error) {
	command, err := parseCommand(line)
	if err != nil {
		return "", err
	}
	if len(command) == 0 {
		return "", nil
	}
	return runCommand(synth, command)
}

// runCommand executes one command:
//
//	play <note> <velocity> [decay] [gain]
//	midi <status> <data1> <data2>
//	channel <1-16>
//	state
//	voices
func runCommand(synth *fm.Synth, command []string) (string, error) {
	args := command[1:]
	switch command[0] {
	case "play":
		if len(args) < 2 || len(args) > 4 {
			return "", fmt.Errorf("usage: play <note> <velocity> [decay] [gain]")
		}
		note, err := strconv.Atoi(args[0])
		if err != nil {
			return "", err
		}
		velocity, err := strconv.Atoi(args[1])
		if err != nil {
			return "", err
		}
		decay := synth.Decay()
		if len(args) > 2 {
			if decay, err = strconv.ParseFloat(args[2], 64); err != nil {
				return "", err
			}
		}
		gain := synth.OutputGain()
		if len(args) > 3 {
			if gain, err = strconv.ParseFloat(args[3], 64); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("voice %d", synth.Play(note, velocity, decay, gain)), nil
	case "midi":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: midi <status> <data1> <data2>")
		}
		data := make([]byte, 3)
		for i, arg := range args {
			value, err := strconv.ParseUint(arg, 0, 8)
			if err != nil {
				return "", err
			}
			data[i] = byte(value)
		}
		if synth.HandleMidi(data) {
			return "played", nil
		}
		return "ignored", nil
	case "channel":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: channel <1-16>")
		}
		channel, err := strconv.Atoi(args[0])
		if err != nil {
			return "", err
		}
		if err := synth.SetChannel(channel); err != nil {
			return "", err
		}
		return fmt.Sprintf("channel %d", channel), nil
	case "state":
		return "state " + string(synth.Options().ToJSON()), nil
	case "voices":
		times, ok := synth.LastUsed()
		s := "voices"
		for i, t := range times {
			if ok[i] {
				s += " " + strconv.FormatFloat(t, 'f', 3, 64)
			} else {
				s += " -"
			}
		}
		return s, nil
	}
	return "", fmt.Errorf("unknown command %v", command[0])
}

func sendReports(ctx context.Context, conn net.Conn, player *audio.Audio) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			if err := writeReports(conn, player); err != nil {
				log.Printf("failed to send report: %v\n", err)
				break loop
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}

type levelSource interface {
	Level() float64
	Spectrum() []float64
}

func writeReports(w io.Writer, src levelSource) error {
	s := "level " + strconv.FormatFloat(src.Level(), 'f', 6, 64) + "\n"
	s += "fft"
	for _, value := range src.Spectrum() {
		s += " " + strconv.FormatFloat(value, 'f', 6, 64)
	}
	_, err := w.Write([]byte(s + "\n"))
	return err
}
