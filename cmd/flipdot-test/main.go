// Command flipdot-test draws a test pattern on a shift register flipdot panel.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/flipdot"
	"github.com/BeatGlow/flipdot/conn"
	"github.com/BeatGlow/flipdot/draw"
	"github.com/BeatGlow/flipdot/pixel"
)

func main() {
	widthFlag := flag.Int("width", flipdot.DefaultGeometry.Cols, "Display width")
	heightFlag := flag.Int("height", flipdot.DefaultGeometry.Rows, "Display height")
	spiPortFlag := flag.String("spi", "", "SPI port (default: use first available)")
	clearPinFlag := flag.String("clear", "GPIO25", "Shift register clear GPIO pin (SRCLR)")
	latchPinFlag := flag.String("latch", "GPIO24", "Latch GPIO pin (RCLK)")
	coilPinFlag := flag.String("coil", "GPIO23", "Coil power GPIO pin")
	ledPinFlag := flag.String("led", "", "Activity LED GPIO pin")
	intervalFlag := flag.Duration("interval", 500*time.Millisecond, "Pattern update interval")
	textFlag := flag.String("text", "", "Show text instead of the pattern")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		fatal(err)
	}

	spiConfig := flipdot.DefaultSPIConfig
	spiConfig.Port = *spiPortFlag
	bus, err := flipdot.OpenSPI(&spiConfig)
	if err != nil {
		fatal(err)
	}
	defer bus.Close()
	fmt.Printf("using connection: %s\n", bus)

	config := flipdot.DefaultPanelConfig
	config.Geometry.Cols = *widthFlag
	config.Geometry.Rows = *heightFlag
	for _, l := range []struct {
		name string
		dst  *conn.Line
	}{
		{*clearPinFlag, &config.Clear},
		{*latchPinFlag, &config.Latch},
		{*coilPinFlag, &config.Coil},
		{*ledPinFlag, &config.Indicator},
	} {
		if *l.dst, err = conn.LineByName(l.name, false); err != nil {
			fatal(err)
		}
	}

	panel, err := flipdot.NewPanel(bus, &config)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("using driver: %s\n", panel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return panel.Run(ctx)
	})
	g.Go(func() error {
		return pattern(ctx, panel, *textFlag, *intervalFlag)
	})

	fmt.Println("hit control-c to stop...")
	if err = g.Wait(); err != nil && err != context.Canceled {
		fatal(err)
	}
}

func pattern(ctx context.Context, panel *flipdot.Panel, text string, interval time.Duration) error {
	if err := panel.Reset(ctx); err != nil {
		return err
	}

	r := panel.Bounds()
	if text != "" {
		return panel.SendText(ctx, text, 1, 1)
	}

	// Draw box around edge
	if err := panel.Paint(ctx, func(dst draw.Image) {
		draw.RoundedRectangle(dst, r, 3, pixel.On)
	}); err != nil {
		return err
	}

	badge := image.Rect(r.Dx()/2-12, 5, r.Dx()/2+12, r.Dy()-5)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for offset := 0; ; offset++ {
		// Diagonal stripes inside the box, moving one dot per tick
		if err := panel.Paint(ctx, func(dst draw.Image) {
			for y := 2; y < r.Max.Y-2; y++ {
				for x := 2; x < r.Max.X-2; x++ {
					if (x+y+offset)%4 == 0 {
						dst.Set(x, y, pixel.On)
					} else {
						dst.Set(x, y, pixel.Off)
					}
				}
			}
			draw.RoundedBox(dst, badge, 3, pixel.On)
			draw.Line(dst, badge.Min.Add(image.Pt(3, 1)), badge.Max.Sub(image.Pt(4, 2)), pixel.Off)
		}); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"offset": offset,
			"status": fmt.Sprintf("%+v", panel.Status()),
		}).Debug("flipdot-test: frame queued")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
