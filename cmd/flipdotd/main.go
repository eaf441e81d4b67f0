// Command flipdotd drives a flipdot display and serves the HTTP control API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/flipdot"
	"github.com/BeatGlow/flipdot/conn"
	"github.com/BeatGlow/flipdot/draw"
	"github.com/BeatGlow/flipdot/httpapi"
	"github.com/BeatGlow/flipdot/internal/config"
)

// driver is a display with a consumer loop.
type driver interface {
	httpapi.Display
	Run(ctx context.Context) error
}

func main() {
	configFlag := flag.String("config", "", "Configuration file (JSON)")
	driverFlag := flag.String("driver", "", "Display driver (panel or module), overrides the configuration")
	listenFlag := flag.String("listen", "", "HTTP listen address, overrides the configuration")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugFlag {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			fatal(err)
		}
	}
	if *driverFlag != "" {
		cfg.Driver = *driverFlag
	}
	if *listenFlag != "" {
		cfg.Listen = *listenFlag
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	if _, err := host.Init(); err != nil {
		fatal(err)
	}

	var (
		log     = logrus.WithField("driver", cfg.Driver)
		display driver
		err     error
	)
	switch cfg.Driver {
	case config.DriverPanel:
		display, err = openPanel(&cfg.Panel, log)
	case config.DriverModule:
		display, err = openModule(&cfg.Module, log)
	}
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.New(display, cfg.RequestTimeout.Duration, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return display.Run(ctx)
	})
	g.Go(func() error {
		log.WithField("listen", cfg.Listen).Info("flipdotd: serving HTTP")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
	log.Info("flipdotd: stopped")
}

// line resolves pin, an unnamed pin is not connected.
func line(pin config.Pin) (conn.Line, error) {
	return conn.LineByName(pin.Name, pin.ActiveLow)
}

func openPanel(c *config.Panel, log logrus.FieldLogger) (*flipdot.Panel, error) {
	bus, err := flipdot.OpenSPI(&flipdot.SPIConfig{
		Port:  c.SPIPort,
		Speed: physic.Frequency(c.SPISpeed) * physic.Hertz,
		Mode:  flipdot.DefaultSPIConfig.Mode,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("bus", bus).Info("flipdotd: shift register bus opened")

	pc := flipdot.DefaultPanelConfig
	pc.Geometry.Cols = c.Cols
	pc.Geometry.Rows = c.Rows
	pc.QueueSize = c.QueueSize
	pc.FlipPulse = c.FlipPulse.Duration
	pc.Settle = c.Settle.Duration
	pc.IdleTimeout = c.IdleTimeout.Duration
	pc.Logger = log

	for _, l := range []struct {
		pin config.Pin
		dst *conn.Line
	}{
		{c.Clear, &pc.Clear},
		{c.Latch, &pc.Latch},
		{c.Coil, &pc.Coil},
		{c.Indicator, &pc.Indicator},
		{c.Backlight, &pc.Backlight},
	} {
		if *l.dst, err = line(l.pin); err != nil {
			return nil, err
		}
	}

	if c.Font != "" {
		if pc.Face, err = draw.LoadFace(c.Font, c.FontSize); err != nil {
			return nil, err
		}
	}

	panel, err := flipdot.NewPanel(bus, &pc)
	if err != nil {
		return nil, err
	}

	// Boot with every dot off, the panel state is unknown after power up.
	go func() {
		if err := panel.Reset(context.Background()); err != nil {
			log.WithError(err).Warn("flipdotd: panel reset failed")
		}
	}()
	return panel, nil
}

func openModule(c *config.Module, log logrus.FieldLogger) (*flipdot.Module, error) {
	port, err := flipdot.OpenSerial(&flipdot.SerialConfig{
		Device: c.Device,
		Baud:   c.Baud,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("port", port).Info("flipdotd: serial port opened")

	mc := flipdot.DefaultModuleConfig
	mc.Address = byte(c.Address)
	mc.Width = byte(c.Width)
	mc.Height = byte(c.Height)
	mc.Font = byte(c.Font)
	mc.Settle = c.Settle.Duration
	mc.IdleTimeout = c.IdleTimeout.Duration
	mc.Logger = log

	if mc.Power, err = line(c.Power); err != nil {
		return nil, err
	}
	if mc.Backlight, err = line(c.Backlight); err != nil {
		return nil, err
	}
	if mc.TxEnable, err = line(c.TxEnable); err != nil {
		return nil, err
	}
	for _, pin := range c.Enable {
		l, err := line(pin)
		if err != nil {
			return nil, err
		}
		if l != nil {
			mc.Enable = append(mc.Enable, l)
		}
	}

	return flipdot.NewModule(port, &mc)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "flipdotd: %v\n", err)
	os.Exit(1)
}
