package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/splace/joysticks"
)

// SpeedAxis maps one dimension of a joystick stick to a signed speed percentage
type SpeedAxis struct {
	AxisNumber int
	UseY       bool
	Invert     bool

	// Positions between these values are bound to zero
	ZeroFrom, ZeroTo float64

	// If true, scale the value range to adjust for zeroFrom/zeroTo and make the entire value range -1..1 available
	ScaleZeroFromTo bool
}

func (a *SpeedAxis) RegisterFlags(prefix string, desc string) {
	flag.IntVar(&a.AxisNumber, prefix, a.AxisNumber, "Index for joystick axis for "+desc)
	flag.BoolVar(&a.UseY, prefix+"Y", a.UseY, "Use Y instead of X axis for "+desc)
	flag.BoolVar(&a.Invert, prefix+"Invert", a.Invert, "Invert axis direction of "+desc)
	flag.Float64Var(&a.ZeroFrom, prefix+"ZeroFrom", a.ZeroFrom, "Start of the zero interval of "+desc)
	flag.Float64Var(&a.ZeroTo, prefix+"ZeroTo", a.ZeroTo, "End of the zero interval of "+desc)
	flag.BoolVar(&a.ScaleZeroFromTo, prefix+"ScaleZeroFromTo", a.ScaleZeroFromTo, "Can be used to disable the value range adjustment after filtering based on zeroFrom/zeroTo for "+desc)
}

// Notify starts a goroutine invoking the hook with the speed for every movement of the axis
func (a *SpeedAxis) Notify(js *joysticks.HID, hook func(speed int)) error {
	if !js.HatExists(uint8(a.AxisNumber)) {
		return fmt.Errorf("Joystick axis (%v) does not exist", a.AxisNumber)
	}
	moved := js.OnMove(uint8(a.AxisNumber))
	go func() {
		for event := range moved {
			coords := event.(joysticks.CoordsEvent)
			hook(a.Speed(coords.X, coords.Y))
		}
	}()
	return nil
}

func (a *SpeedAxis) Speed(x, y float32) int {
	val := x
	if a.UseY {
		val = y
	}
	if a.Invert {
		val = -val
	}
	return int(math.Round(float64(a.convert(val)) * 100))
}

func (a *SpeedAxis) convert(val float32) float32 {
	zeroFrom := float32(a.ZeroFrom)
	zeroTo := float32(a.ZeroTo)
	if val >= zeroFrom && val <= zeroTo {
		val = 0
	} else if a.ScaleZeroFromTo {
		// Scale the value range from [-1..zeroFrom] and [zeroTo..1] to [-1..0] and [0..1]
		if val > 0 {
			val = (val - zeroTo) / (1 - zeroTo)
		} else if val < 0 {
			val = (zeroFrom - val) / (-1 - zeroFrom)
		}
	}
	if val > 1 {
		val = 1
	} else if val < -1 {
		val = -1
	}
	return val
}
