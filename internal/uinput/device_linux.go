//go:build linux

package uinput

import (
	"fmt"
	"os"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device creation goes through the classic /dev/uinput protocol: enable
// the event types and key codes, write a uinput_user_dev description,
// then UI_DEV_CREATE. Numbers from linux/uinput.h.

const (
	devicePath = "/dev/uinput"

	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiDevCreate  = 0x5501     // _IO('U', 1)
	uiDevDestroy = 0x5502     // _IO('U', 2)

	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0

	busVirtual = 0x06
)

// inputID mirrors struct input_id.
type inputID struct {
	bustype uint16
	vendor  uint16
	product uint16
	version uint16
}

// userDev mirrors struct uinput_user_dev. The abs ranges stay zero; a
// keyboard has no absolute axes.
type userDev struct {
	name         [80]byte
	id           inputID
	ffEffectsMax uint32
	absMax       [64]int32
	absMin       [64]int32
	absFuzz      [64]int32
	absFlat      [64]int32
}

// inputEvent mirrors struct input_event. The kernel stamps the time on
// uinput writes, so it stays zero here.
type inputEvent struct {
	time  unix.Timeval
	typ   uint16
	code  uint16
	value int32
}

// Device is a created uinput keyboard node.
type Device struct {
	f *os.File
}

// Open creates a virtual keyboard named name exposing exactly the given
// keys. Needs write access to /dev/uinput.
func Open(name string, keys []Key) (*Device, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("uinput: no keys to register")
	}

	f, err := os.OpenFile(devicePath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("uinput: open %s: %w", devicePath, err)
	}
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	if err := ioctl(f.Fd(), uiSetEvBit, uintptr(evKey)); err != nil {
		return nil, fmt.Errorf("uinput: enable key events: %w", err)
	}
	sorted := append([]Key(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, k := range sorted {
		if err := ioctl(f.Fd(), uiSetKeyBit, uintptr(k)); err != nil {
			return nil, fmt.Errorf("uinput: register %v: %w", k, err)
		}
	}

	var ud userDev
	copy(ud.name[:len(ud.name)-1], name)
	ud.id = inputID{bustype: busVirtual, version: 1}
	if _, err := f.Write(unsafe.Slice((*byte)(unsafe.Pointer(&ud)), int(unsafe.Sizeof(ud)))); err != nil {
		return nil, fmt.Errorf("uinput: describe device: %w", err)
	}
	if err := ioctl(f.Fd(), uiDevCreate, 0); err != nil {
		return nil, fmt.Errorf("uinput: create device: %w", err)
	}

	ok = true
	return &Device{f: f}, nil
}

// Tap presses and releases k, with a sync report after each edge so
// evdev consumers see two distinct key transitions.
func (d *Device) Tap(k Key) error {
	if d == nil || d.f == nil {
		return fmt.Errorf("uinput: device is closed")
	}
	if err := d.emit(evKey, uint16(k), 1); err != nil {
		return fmt.Errorf("uinput: press %v: %w", k, err)
	}
	if err := d.emit(evSyn, synReport, 0); err != nil {
		return fmt.Errorf("uinput: sync: %w", err)
	}
	if err := d.emit(evKey, uint16(k), 0); err != nil {
		return fmt.Errorf("uinput: release %v: %w", k, err)
	}
	if err := d.emit(evSyn, synReport, 0); err != nil {
		return fmt.Errorf("uinput: sync: %w", err)
	}
	return nil
}

func (d *Device) emit(typ, code uint16, value int32) error {
	ev := inputEvent{typ: typ, code: code, value: value}
	_, err := d.f.Write(unsafe.Slice((*byte)(unsafe.Pointer(&ev)), int(unsafe.Sizeof(ev))))
	return err
}

// Close destroys the virtual device. The node disappears from the host
// as soon as the destroy ioctl lands.
func (d *Device) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	derr := ioctl(d.f.Fd(), uiDevDestroy, 0)
	cerr := d.f.Close()
	d.f = nil
	if derr != nil {
		return fmt.Errorf("uinput: destroy device: %w", derr)
	}
	return cerr
}

func ioctl(fd, req, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg); errno != 0 {
		return errno
	}
	return nil
}
