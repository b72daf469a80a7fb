package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/jinjor/fm-synth/src/fm"
)

func repl(ctx context.Context, synth *fm.Synth) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		result, err := evalLine(synth, line)
		if err != nil {
			fmt.Println(err)
		} else if result != "" {
			fmt.Println(result)
		}
	}
}
