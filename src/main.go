package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jinjor/fm-synth/src/audio"
	"github.com/jinjor/fm-synth/src/fm"
	"golang.org/x/sync/errgroup"
)

const sockFileName = "/tmp/fm-synth.sock"

func main() {
	fs := flag.CommandLine
	settings := newSettings(fs)
	var (
		configPath = fs.String("config", "", "JSON options file, applied before the other flags")
		midiPort   = fs.String("midi-port", "", "MIDI IN port name (substring); first port when empty")
		useREPL    = fs.Bool("repl", false, "read commands from the terminal instead of "+sockFileName)
		renderPath = fs.String("render", "", "render -notes offline into this WAV file and exit")
		notes      = fs.String("notes", "60,64,67,72", "comma separated notes for -render")
		velocity   = fs.Int("velocity", 100, "velocity for -render")
		step       = fs.Float64("step", 0.25, "seconds between notes for -render")
		length     = fs.Float64("length", 3, "seconds to render for -render")
		renderRate = fs.Int("sample-rate", 48000, "sample rate for -render")
	)
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	options := fm.DefaultOptions()
	if *configPath != "" {
		data, err := ioutil.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		if err := options.ApplyJSON(data); err != nil {
			log.Fatalf("error: %v\n", err)
		}
	}
	if err := settings.apply(fs, options); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	if *renderPath != "" {
		noteList, err := parseInts(*notes)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		r := &render{
			notes:      noteList,
			velocity:   *velocity,
			step:       *step,
			length:     *length,
			sampleRate: *renderRate,
		}
		if err := r.writeWAV(options, *renderPath); err != nil {
			log.Fatalf("error: %v\n", err)
		}
		log.Printf("rendered %s\n", *renderPath)
		return
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	player, err := audio.NewAudio()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer player.Close()

	synth, err := fm.NewSynth(player, options)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Printf("synth: %s\n", synth.Options().ToJSON())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()

	run := func(commands func(ctx context.Context) error, others ...func(ctx context.Context) error) error {
		return runTasks(ctx, cancel, commands, append(others, player.Start, func(ctx context.Context) error {
			return synth.Listen(ctx, audio.ListenToMidiIn(ctx, *midiPort))
		})...)
	}
	if *useREPL {
		err = run(func(ctx context.Context) error {
			return repl(ctx, synth)
		})
	} else {
		err = withIPCConnection(ctx, func(conn net.Conn) error {
			return run(func(ctx context.Context) error {
				return receiveCommands(ctx, conn, synth)
			}, func(ctx context.Context) error {
				return sendReports(ctx, conn, player)
			})
		})
	}
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

// runTasks runs the command surface and the other loops in one group. When
// the command surface returns, cancel stops the rest and runTasks waits
// for them.
func runTasks(ctx context.Context, cancel context.CancelFunc, commands func(ctx context.Context) error, others ...func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range others {
		f := f
		g.Go(func() error {
			return f(ctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return commands(ctx)
	})
	return g.Wait()
}

func withIPCConnection(ctx context.Context, f func(net.Conn) error) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closeing IPC...")
		err := listener.Close()
		if err != nil {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(sockFileName)
	}()
	log.Printf("start listening...\n")
	conn, err := listener.Accept()
	if err != nil {
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	return f(conn)
}
