package display

import (
	"fmt"
	"image"
	"io"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// panel is the minimal interface the service needs from the SSD1306
// driver.
type panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
	Halt() error
}

// openPanel initializes the periph host, opens the I2C bus and brings up
// the SSD1306. An empty bus name picks the first registered bus. The
// driver talks to address 0x3C only; any other address is rejected here
// rather than silently painting the wrong device.
func openPanel(busName string, addr uint16) (panel, io.Closer, error) {
	if addr != 0x3C {
		return nil, nil, fmt.Errorf("display: ssd1306 driver supports address 0x3C, got 0x%02X", addr)
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("display: init periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("display: open i2c bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, nil, fmt.Errorf("display: ssd1306 init: %w", err)
	}
	return dev, bus, nil
}
