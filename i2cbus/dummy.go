package i2cbus

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Write struct {
	Addr byte
	Data []byte
}

// Dummy does not access any hardware. It logs and records all writes, reads return zeros.
type Dummy struct {
	// If set, only these slaves respond, reads from other addresses fail.
	Slaves []byte

	Writes []Write
	Closed bool
}

func (d *Dummy) I2cWrite(addr byte, data ...byte) error {
	if err := d.check(addr); err != nil {
		return err
	}
	log.Debugf("Dummy I2C write to %#02x: %#02x", addr, data)
	d.Writes = append(d.Writes, Write{Addr: addr, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Dummy) I2cRead(addr byte, data []byte) error {
	if err := d.check(addr); err != nil {
		return err
	}
	for i := range data {
		data[i] = 0
	}
	return nil
}

func (d *Dummy) I2cWriteRead(addr byte, out, in []byte) error {
	if err := d.I2cWrite(addr, out...); err != nil {
		return err
	}
	return d.I2cRead(addr, in)
}

func (d *Dummy) Close() error {
	d.Closed = true
	return nil
}

// Reset forgets all recorded writes
func (d *Dummy) Reset() {
	d.Writes = nil
}

func (d *Dummy) check(addr byte) error {
	if len(d.Slaves) == 0 {
		return nil
	}
	for _, slave := range d.Slaves {
		if slave == addr {
			return nil
		}
	}
	return fmt.Errorf("Dummy I2C bus: no slave at %#02x", addr)
}
