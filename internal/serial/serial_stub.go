//go:build !linux

package serial

import (
	"fmt"
	"os"
)

func openSerial(path string, baud int) (*os.File, error) {
	return nil, fmt.Errorf("band serial not supported on this platform")
}
