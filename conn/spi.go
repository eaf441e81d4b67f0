package conn

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SPI is a write-mostly SPI connection to a shift register chain.
//
// The chip select line doubles as the register latch clock, so every Tx is
// latched by the driver deasserting CS at the end of the transfer.
type SPI struct {
	port  spi.PortCloser
	conn  spi.Conn
	speed physic.Frequency
	mode  spi.Mode
}

// OpenSPI opens the named SPI port (empty name selects the first available port).
func OpenSPI(name string, speed physic.Frequency, mode spi.Mode) (*SPI, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, err
	}

	c, err := port.Connect(speed, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("conn: SPI connect at %s: %w", speed, err)
	}

	return &SPI{
		port:  port,
		conn:  c,
		speed: speed,
		mode:  mode,
	}, nil
}

func (c *SPI) String() string {
	return fmt.Sprintf("SPI %s mode=%d speed=%s", c.port, c.mode, c.speed)
}

func (c *SPI) Close() error {
	return c.port.Close()
}

// Tx clocks out w, and clocks in r if it is not nil.
func (c *SPI) Tx(w, r []byte) error {
	return c.conn.Tx(w, r)
}

func (c *SPI) Write(b []byte) (n int, err error) {
	if err = c.conn.Tx(b, nil); err != nil {
		return 0, err
	}
	return len(b), nil
}
