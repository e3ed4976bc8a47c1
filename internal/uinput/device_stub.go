//go:build !linux

package uinput

import "fmt"

// Device is unavailable off Linux; uinput is a Linux kernel interface.
type Device struct{}

func Open(name string, keys []Key) (*Device, error) {
	return nil, fmt.Errorf("uinput: virtual keyboard not supported on this platform")
}

func (d *Device) Tap(k Key) error {
	return fmt.Errorf("uinput: virtual keyboard not supported on this platform")
}

func (d *Device) Close() error { return nil }
