package i2cbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	a := assert.New(t)
	bus := &Dummy{Slaves: []byte{0x0f, 0x40, 0x60}}
	a.Equal([]byte{0x0f, 0x40, 0x60}, Scan(bus))

	a.Len(Scan(&Dummy{}), int(LastAddress-FirstAddress)+1)
}

func TestDummyRecordsWrites(t *testing.T) {
	a := assert.New(t)
	bus := new(Dummy)
	data := []byte{1, 2, 3}
	a.NoError(bus.I2cWrite(0x40, data...))
	data[0] = 99 // Recorded writes are copies
	a.NoError(bus.I2cWrite(0x41))

	in := []byte{7, 7}
	a.NoError(bus.I2cWriteRead(0x42, []byte{5}, in))
	a.Equal([]byte{0, 0}, in)

	a.Equal([]Write{
		{Addr: 0x40, Data: []byte{1, 2, 3}},
		{Addr: 0x41},
		{Addr: 0x42, Data: []byte{5}},
	}, bus.Writes)

	bus.Reset()
	a.Empty(bus.Writes)
	a.NoError(bus.Close())
	a.True(bus.Closed)
}

func TestDummyMissingSlave(t *testing.T) {
	a := assert.New(t)
	bus := &Dummy{Slaves: []byte{0x40}}
	a.Error(bus.I2cWrite(0x41, 1))
	a.Error(bus.I2cRead(0x41, make([]byte, 1)))
	a.Empty(bus.Writes)
}
