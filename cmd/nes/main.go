// Command nes runs a cartridge headless for a number of frames, and
// dumps what it produced.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cespare/xxhash"
	"github.com/thelolagemann/nescore/internal/apu"
	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/cheats"
	"github.com/thelolagemann/nescore/internal/nes"
	"github.com/thelolagemann/nescore/pkg/log"
	"github.com/thelolagemann/nescore/pkg/monitor"
	"github.com/thelolagemann/nescore/pkg/utils"
)

// frameTime is the duration of an NTSC frame, used to pace the emulation
// when a monitor is attached.
const frameTime = time.Second * 100 / 6009

func main() {
	romFile := flag.String("rom", "", "The rom file to load (.nes, optionally in a .zip, .7z or .gz)")
	frames := flag.Int("frames", 60, "The number of frames to run")
	dbFile := flag.String("db", "", "A game database compiled by cartdb")
	stateIn := flag.String("state", "", "A state to start from")
	stateOut := flag.String("save", "", "Where to save the state once done")
	cheatFile := flag.String("cheats", "", "A cheat file, cheats whose name starts with + are enabled")
	battery := flag.String("battery", "", "The battery RAM file, loaded at start and saved once done")
	bmpOut := flag.String("bmp", "", "Where to save the last frame as a bitmap")
	wavOut := flag.String("wav", "", "Where to save the audio of every frame")
	plotOut := flag.String("plot", "", "Where to save a plot of the last frame's audio")
	sampleRate := flag.Int("rate", apu.DefaultSampleRate, "The audio sample rate")
	monitorAddr := flag.String("monitor", "", "Serve the status of every frame over a websocket at this address, in real time")
	verbose := flag.Bool("v", false, "Log debug messages")
	flag.Parse()

	s := newStyles()
	if *romFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOutput(os.Stderr, level)

	cfg := config{
		rom: *romFile, frames: *frames, db: *dbFile,
		stateIn: *stateIn, stateOut: *stateOut, battery: *battery, cheats: *cheatFile,
		bmp: *bmpOut, wav: *wavOut, plot: *plotOut,
		sampleRate: *sampleRate, monitor: *monitorAddr,
	}
	rows, err := run(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, s.err.Render(err.Error()))
		os.Exit(1)
	}
	fmt.Println(s.summary(*romFile, rows))
}

type config struct {
	rom, db, stateIn, stateOut, battery string
	cheats                              string
	bmp, wav, plot, monitor             string
	frames, sampleRate                  int
}

func run(cfg config, logger log.Logger) ([][2]string, error) {
	rom, err := utils.LoadFile(cfg.rom)
	if err != nil {
		return nil, err
	}

	opts := []nes.Opt{nes.WithLogger(logger), nes.WithSampleRate(cfg.sampleRate)}
	if cfg.db != "" {
		db, err := cartridge.LoadDatabase(cfg.db)
		if err != nil {
			return nil, err
		}
		logger.Debugf("loaded %d database entries", db.Len())
		opts = append(opts, nes.WithDatabase(db))
	}
	if cfg.cheats != "" {
		f, err := os.Open(cfg.cheats)
		if err != nil {
			return nil, err
		}
		list, err := cheats.ParseCheatFile(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.cheats, err)
		}
		opts = append(opts, nes.WithCheats(list...))
	}
	if cfg.stateIn != "" {
		state, err := os.ReadFile(cfg.stateIn)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nes.WithState(state))
	}

	n, err := nes.New(rom, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.battery != "" {
		if err := n.LoadBatteryFile(cfg.battery); err != nil {
			return nil, err
		}
	}

	var wav *utils.WAVWriter
	if cfg.wav != "" {
		f, err := os.Create(cfg.wav)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		wav = utils.NewWAVWriter(f, cfg.sampleRate)
	}

	var hub *monitor.Hub
	var ticker *time.Ticker
	if cfg.monitor != "" {
		hub = monitor.NewHub(logger)
		go hub.Run()
		defer hub.Close()
		go func() {
			if err := http.ListenAndServe(cfg.monitor, hub); err != nil {
				logger.Errorf("monitor: %v", err)
			}
		}()
		logger.Infof("monitor listening on %s", cfg.monitor)

		ticker = time.NewTicker(frameTime)
		defer ticker.Stop()
	}

	start := time.Now()
	for i := 0; i < cfg.frames; i++ {
		n.Frame()
		if wav != nil {
			if err := wav.Write(n.Samples()); err != nil {
				return nil, err
			}
		}
		if hub != nil {
			hub.Publish(monitor.StatusOf(n))
			<-ticker.C
		}
	}
	elapsed := time.Since(start)

	if wav != nil {
		if err := wav.Close(); err != nil {
			return nil, err
		}
	}
	if cfg.bmp != "" {
		if err := utils.SaveBMP(cfg.bmp, n.FrameBuffer()); err != nil {
			return nil, err
		}
	}
	if cfg.plot != "" {
		if err := savePlot(cfg.plot, n.Samples(), cfg.sampleRate); err != nil {
			return nil, err
		}
	}
	if cfg.stateOut != "" {
		state, err := n.SaveState()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(cfg.stateOut, state, 0644); err != nil {
			return nil, err
		}
	}
	if cfg.battery != "" {
		if err := n.SaveBatteryFile(cfg.battery); err != nil && !errors.Is(err, nes.ErrNoBattery) {
			return nil, err
		}
	}

	img, d := n.Image(), n.Image().Descriptor
	fps := float64(cfg.frames) / elapsed.Seconds()
	return [][2]string{
		{"Board", fmt.Sprintf("%s (mapper %d.%d)", n.Cart().Name(), d.Mapper, d.SubMapper)},
		{"CRC32", fmt.Sprintf("%08X", img.Crc)},
		{"PRG/CHR", fmt.Sprintf("%d KiB / %d KiB", len(img.Prg)/1024, len(img.Chr)/1024)},
		{"Mirroring", d.Mirroring.String()},
		{"Frames", fmt.Sprintf("%d", n.FrameCount())},
		{"CPU cycles", fmt.Sprintf("%d", n.Bus().CpuCycleCount())},
		{"Registers", n.CPU.Registers().String()},
		{"Frame hash", fmt.Sprintf("%016x", xxhash.Sum64(n.FrameBuffer().Pix))},
		{"Speed", fmt.Sprintf("%.1f fps (%.1fx)", fps, fps/60.0988)},
	}, nil
}

func savePlot(filename string, samples []int16, sampleRate int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := utils.PlotSamples(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
