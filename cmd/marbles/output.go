package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/banshee-data/marbles/internal/config"
	"github.com/banshee-data/marbles/internal/preview"
	"github.com/banshee-data/marbles/internal/serialmux"
	"github.com/banshee-data/marbles/internal/strip"
)

const (
	transportSerial  = "serial"
	transportPreview = "preview"
	transportNull    = "null"

	previewLogFile = "marbles-preview.log"
)

// stripFlags are shared by every command that drives the strip.
type stripFlags struct {
	transport    string
	port         string
	baud         int
	ledCount     int
	ledsPerMeter float64
}

func (f *stripFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.transport, "transport", transportSerial, "Output: serial, preview or null")
	cmd.Flags().StringVar(&f.port, "port", "/dev/ttyACM0", "Serial port of the strip controller")
	cmd.Flags().IntVar(&f.baud, "baud", serialmux.DefaultBaudRate, "Serial baud rate")
	cmd.Flags().IntVar(&f.ledCount, "led-count", 600, "Number of LEDs on the strip (overrides led_count)")
	cmd.Flags().Float64Var(&f.ledsPerMeter, "leds-per-meter", 60, "LED density (overrides leds_per_meter)")
}

// apply copies explicitly set flags over the tuning file and revalidates.
func (f *stripFlags) apply(cmd *cobra.Command, cfg *config.TuningConfig) error {
	if cmd.Flags().Changed("led-count") {
		n := f.ledCount
		cfg.LEDCount = &n
	}
	if cmd.Flags().Changed("leds-per-meter") {
		d := f.ledsPerMeter
		cfg.LEDsPerMeter = &d
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// redirectLogs sends log output to previewLogFile while the terminal
// preview owns the screen. The returned func closes the file.
func (f *stripFlags) redirectLogs() (func(), error) {
	if !strings.EqualFold(f.transport, transportPreview) {
		return func() {}, nil
	}
	logFile, err := tea.LogToFile(previewLogFile, "marbles")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", previewLogFile, err)
	}
	return func() { logFile.Close() }, nil
}

// output is an opened strip together with whatever drives its transport.
type output struct {
	strip   *strip.Strip
	mux     *serialmux.SerialMux[serial.Port]
	preview *preview.Transport
}

func openOutput(f *stripFlags, cfg *config.TuningConfig) (*output, error) {
	out := &output{}
	var transport strip.Transport

	switch strings.ToLower(f.transport) {
	case transportSerial:
		mux, err := serialmux.NewRealSerialMux(f.port, serialmux.PortOptions{BaudRate: f.baud})
		if err != nil {
			return nil, fmt.Errorf("failed to open strip controller: %w", err)
		}
		log.Printf("opened strip controller %s at %d baud", f.port, f.baud)
		out.mux = mux
		transport = strip.NewSerialTransport(mux)
	case transportPreview:
		out.preview = preview.NewTransport()
		transport = out.preview
	case transportNull:
		transport = &strip.NullTransport{}
	default:
		return nil, fmt.Errorf("unknown transport %q: expected %s, %s or %s",
			f.transport, transportSerial, transportPreview, transportNull)
	}

	out.strip = strip.New(strip.Options{
		LEDCount: cfg.GetLEDCount(),
		MaxPower: cfg.GetMaxPower(),
		Retries:  cfg.GetTransmitRetries(),
	}, transport)
	return out, nil
}

// monitor reads controller output until ctx is done. It is a no-op for
// transports without a serial link.
func (o *output) monitor(ctx context.Context, wg *sync.WaitGroup) {
	if o.mux == nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := o.mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()
}

func (o *output) attachAdminRoutes(mux *http.ServeMux) {
	if o.mux != nil {
		o.mux.AttachAdminRoutes(mux)
	}
}

func (o *output) Close() error {
	return o.strip.Close()
}

func previewRun(ctx context.Context, o *output, status preview.StatusFunc) error {
	if o.preview == nil {
		return nil
	}
	return preview.Run(ctx, o.preview, status)
}
