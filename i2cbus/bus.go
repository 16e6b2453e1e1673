// Package i2cbus provides the I2C transport shared by the PWM and motor driver chips.
package i2cbus

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Range of non-reserved 7-bit addresses
	FirstAddress = byte(0x08)
	LastAddress  = byte(0x77)
)

type Bus interface {
	I2cWrite(addr byte, data ...byte) error
	I2cRead(addr byte, data []byte) error
	I2cWriteRead(addr byte, out, in []byte) error
	Close() error
}

// Periph is a Bus backed by a periph.io I2C bus, e.g. /dev/i2c-1 on a Raspberry Pi.
type Periph struct {
	bus i2c.BusCloser
}

// Open initializes the periph.io host drivers and opens the named bus. An empty name opens the first available bus.
// A non-zero frequency (in kHz) is applied to the bus.
func Open(name string, freqKHz uint) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize periph.io host drivers")
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open I2C bus '%v'", name)
	}
	if freqKHz > 0 {
		if err := bus.SetSpeed(physic.Frequency(freqKHz) * physic.KiloHertz); err != nil {
			log.Warnf("Failed to set I2C bus %v to %vkHz: %v", bus, freqKHz, err)
		}
	}
	log.Printf("Opened I2C bus %v", bus)
	return &Periph{bus: bus}, nil
}

func (p *Periph) I2cWrite(addr byte, data ...byte) error {
	return p.tx(addr, data, nil)
}

func (p *Periph) I2cRead(addr byte, data []byte) error {
	return p.tx(addr, nil, data)
}

func (p *Periph) I2cWriteRead(addr byte, out, in []byte) error {
	return p.tx(addr, out, in)
}

func (p *Periph) tx(addr byte, out, in []byte) error {
	if err := p.bus.Tx(uint16(addr), out, in); err != nil {
		return errors.Wrapf(err, "I2C transaction with %#02x failed", addr)
	}
	return nil
}

func (p *Periph) Close() error {
	return p.bus.Close()
}

func (p *Periph) String() string {
	return fmt.Sprintf("%v", p.bus)
}

// Scan returns the addresses of all slaves that acknowledge a single byte read.
func Scan(bus Bus) []byte {
	var found []byte
	buf := make([]byte, 1)
	for addr := FirstAddress; addr <= LastAddress; addr++ {
		if err := bus.I2cRead(addr, buf); err == nil {
			found = append(found, addr)
		} else {
			log.Debugf("No I2C slave at %#02x: %v", addr, err)
		}
	}
	return found
}
