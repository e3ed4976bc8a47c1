//go:build !linux || (!arm && !arm64)

package haptics

import "fmt"

func openGPIO(chip string, motorLine, ledLine int) (gpioDriver, error) {
	return nil, fmt.Errorf("haptics: gpio unsupported on this platform")
}
