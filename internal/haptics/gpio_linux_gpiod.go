//go:build linux && (arm || arm64)

package haptics

import (
	"fmt"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openGPIO drives the motor and LED lines through the Linux GPIO
// character device. Offsets follow the chip's own numbering (BCM on the
// Pi); a negative offset leaves that line unrequested.
func openGPIO(chip string, motorLine, ledLine int) (gpioDriver, error) {
	path := chip
	if !strings.HasPrefix(path, "/dev/") {
		path = "/dev/" + path
	}
	c, err := gpiocdev.NewChip(path)
	if err != nil {
		return nil, fmt.Errorf("haptics: open %s: %w", path, err)
	}

	d := &gpiodDriver{chip: c}
	if motorLine >= 0 {
		line, err := c.RequestLine(motorLine, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("myohub-haptics"))
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("haptics: request motor line %d: %w", motorLine, err)
		}
		d.motor = line
	}
	if ledLine >= 0 {
		line, err := c.RequestLine(ledLine, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("myohub-haptics"))
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("haptics: request led line %d: %w", ledLine, err)
		}
		d.led = line
	}
	return d, nil
}

type gpiodDriver struct {
	chip  *gpiocdev.Chip
	motor *gpiocdev.Line
	led   *gpiocdev.Line
}

func (d *gpiodDriver) SetMotor(on bool) error { return setLine(d.motor, on) }
func (d *gpiodDriver) SetLED(on bool) error   { return setLine(d.led, on) }

func setLine(l *gpiocdev.Line, on bool) error {
	if l == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	return l.SetValue(v)
}

func (d *gpiodDriver) Close() error {
	if d == nil {
		return nil
	}
	var first error
	for _, l := range []*gpiocdev.Line{d.motor, d.led} {
		if l == nil {
			continue
		}
		_ = l.SetValue(0)
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.motor, d.led = nil, nil
	if d.chip != nil {
		_ = d.chip.Close()
		d.chip = nil
	}
	return first
}
