package ads1115

import (
	"testing"

	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/stretchr/testify/assert"
)

func TestRegisterAddresses(t *testing.T) {
	a := assert.New(t)
	a.Equal(byte(0), REG_CONVERSION)
	a.Equal(byte(3), REG_HI_THRESH)
	a.Equal(uint16(0), CONFIG_MUX_01)
	a.Equal(uint16(0x1000), CONFIG_MUX_03)
	a.Equal(uint16(0x7000), CONFIG_MUX_3GND)
	a.Equal(uint16(0), CONFIG_PGA_6V)
	a.Equal(uint16(0xe0), CONFIG_DR_860)
}

func TestParseConversion(t *testing.T) {
	a := assert.New(t)
	test := func(msb, lsb byte, expected int16) {
		a.Equal(expected, parseConversionRegister([]byte{msb, lsb}))
	}
	test(0, 0, 0)
	test(0x7f, 0xff, 32767)
	test(0x80, 0x00, -32768)
	test(0xff, 0xff, -1)
	test(0x12, 0x34, 0x1234)
}

func TestRegisterAccess(t *testing.T) {
	a := assert.New(t)
	bus := new(i2cbus.Dummy)
	a.NoError(WriteRegister(bus, ADDR_VDD, REG_CONFIG, 0x8583))
	a.Equal([]i2cbus.Write{{Addr: ADDR_VDD, Data: []byte{REG_CONFIG, 0x85, 0x83}}}, bus.Writes)

	bus.Reset()
	val, err := ReadRegister(bus, ADDR_VDD, REG_LO_THRESH)
	a.NoError(err)
	a.Equal(int16(0), val)
	a.Equal([]i2cbus.Write{{Addr: ADDR_VDD, Data: []byte{REG_LO_THRESH}}}, bus.Writes)

	bus.Slaves = []byte{ADDR_GND}
	_, err = ReadRegisterDirectly(bus, ADDR_VDD)
	a.Error(err)
	_, err = ReadRegister(bus, ADDR_VDD, REG_CONFIG)
	a.Error(err)
}
