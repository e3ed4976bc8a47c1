// Package ble connects to a band over Bluetooth LE as a central: it
// scans for the vendor control service, subscribes to the IMU and EMG
// notification characteristics and writes commands back.
package ble

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/bluetooth"

	"myohub/internal/band"
)

var (
	controlServiceUUID = mustUUID(band.ControlServiceUUID)
	commandCharUUID    = mustUUID(band.CommandCharUUID)
	imuServiceUUID     = mustUUID(band.IMUServiceUUID)
	imuDataCharUUID    = mustUUID(band.IMUDataCharUUID)
	emgServiceUUID     = mustUUID(band.EMGServiceUUID)

	emgDataCharUUIDs = func() []bluetooth.UUID {
		out := make([]bluetooth.UUID, 0, len(band.EMGDataCharUUIDs))
		for _, s := range band.EMGDataCharUUIDs {
			out = append(out, mustUUID(s))
		}
		return out
	}()
)

func mustUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(fmt.Sprintf("ble: bad uuid %q: %v", s, err))
	}
	return u
}

// Config controls the BLE bridge.
type Config struct {
	// Address pins the bridge to one band's MAC; empty connects to the
	// first device advertising the control service.
	Address string
	// Name additionally filters by advertised local name.
	Name string

	ScanTimeout    time.Duration // default 30s
	ReconnectDelay time.Duration // default 2s
}

// Bridge maintains the BLE link to a band, reconnecting when it drops.
type Bridge struct {
	cfg     Config
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	mu     sync.Mutex
	conn   *connection
	closed bool
	done   chan struct{}

	imuPackets atomic.Uint64
	emgPackets atomic.Uint64
}

// connection holds the discovered characteristics of one established
// link. lost is closed when the peripheral drops off.
type connection struct {
	device  bluetooth.Device
	addr    string
	command bluetooth.DeviceCharacteristic
	imu     bluetooth.DeviceCharacteristic
	emg     []bluetooth.DeviceCharacteristic
	lost    chan struct{}
	once    sync.Once
}

func (c *connection) markLost() { c.once.Do(func() { close(c.lost) }) }

// NewBridge prepares a bridge on the default adapter. Nothing touches
// the radio until Configure.
func NewBridge(cfg Config) *Bridge {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 30 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &Bridge{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
		done:    make(chan struct{}),
	}
}

// Configure enables the adapter and establishes the first link, so
// startup fails fast when no band is in range.
func (b *Bridge) Configure(ctx context.Context) error {
	if b == nil {
		return fmt.Errorf("ble: bridge is nil")
	}
	if err := b.enable(); err != nil {
		return err
	}
	conn, err := b.connect(ctx)
	if err != nil {
		return err
	}
	b.setConn(conn)
	return nil
}

func (b *Bridge) enable() error {
	b.enableOnce.Do(func() {
		if err := b.adapter.Enable(); err != nil {
			b.enableErr = fmt.Errorf("ble: enable adapter: %w", err)
			return
		}
		// The handler fires for every link transition; only drops need
		// handling, and only for the link we are holding.
		b.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
			if connected {
				return
			}
			b.mu.Lock()
			conn := b.conn
			b.mu.Unlock()
			if conn != nil {
				conn.markLost()
			}
		})
	})
	return b.enableErr
}

// connect scans for a matching band, connects and discovers the control,
// IMU and EMG characteristics, then switches the band into streaming.
func (b *Bridge) connect(ctx context.Context) (*connection, error) {
	result, err := b.scan(ctx)
	if err != nil {
		return nil, err
	}

	dev, err := b.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("ble: connect %s: %w", result.Address, err)
	}

	conn, err := discover(dev)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}
	conn.addr = result.Address.String()

	if _, err := conn.command.WriteWithoutResponse(band.StreamingCommand()); err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("ble: set streaming mode: %w", err)
	}
	if _, err := conn.command.WriteWithoutResponse(band.SleepCommand(band.SleepNever)); err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("ble: set sleep mode: %w", err)
	}

	log.Printf("ble: band connected addr=%s", conn.addr)
	return conn, nil
}

func (b *Bridge) scan(ctx context.Context) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	timer := time.AfterFunc(b.cfg.ScanTimeout, func() { _ = b.adapter.StopScan() })
	defer timer.Stop()
	stopOnCancel := context.AfterFunc(ctx, func() { _ = b.adapter.StopScan() })
	defer stopOnCancel()

	err := b.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if !b.matches(r) {
			return
		}
		select {
		case found <- r:
		default:
		}
		_ = a.StopScan()
	})
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("ble: scan: %w", err)
	}

	select {
	case r := <-found:
		return r, nil
	default:
	}
	if cerr := ctx.Err(); cerr != nil {
		return bluetooth.ScanResult{}, cerr
	}
	return bluetooth.ScanResult{}, fmt.Errorf("ble: no band found within %v", b.cfg.ScanTimeout)
}

func (b *Bridge) matches(r bluetooth.ScanResult) bool {
	return b.wants(r.Address.String(), r.LocalName(), r.HasServiceUUID(controlServiceUUID))
}

// wants decides whether an advertisement belongs to the configured band.
// An address pin wins over everything, then a name pin, then any device
// advertising the vendor control service.
func (b *Bridge) wants(addr, name string, hasControlService bool) bool {
	if b.cfg.Address != "" {
		return strings.EqualFold(addr, b.cfg.Address)
	}
	if b.cfg.Name != "" {
		return name == b.cfg.Name
	}
	return hasControlService
}

func discover(dev bluetooth.Device) (*connection, error) {
	svcs, err := dev.DiscoverServices([]bluetooth.UUID{controlServiceUUID, imuServiceUUID, emgServiceUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}

	conn := &connection{device: dev, lost: make(chan struct{})}
	var haveCmd, haveIMU bool
	for _, svc := range svcs {
		switch svc.UUID() {
		case controlServiceUUID:
			chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{commandCharUUID})
			if err != nil {
				return nil, fmt.Errorf("ble: discover command characteristic: %w", err)
			}
			if len(chars) != 1 {
				return nil, fmt.Errorf("ble: command characteristic missing")
			}
			conn.command = chars[0]
			haveCmd = true
		case imuServiceUUID:
			chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{imuDataCharUUID})
			if err != nil {
				return nil, fmt.Errorf("ble: discover imu characteristic: %w", err)
			}
			if len(chars) != 1 {
				return nil, fmt.Errorf("ble: imu characteristic missing")
			}
			conn.imu = chars[0]
			haveIMU = true
		case emgServiceUUID:
			chars, err := svc.DiscoverCharacteristics(emgDataCharUUIDs)
			if err != nil {
				return nil, fmt.Errorf("ble: discover emg characteristics: %w", err)
			}
			if len(chars) != len(emgDataCharUUIDs) {
				return nil, fmt.Errorf("ble: found %d of %d emg characteristics", len(chars), len(emgDataCharUUIDs))
			}
			conn.emg = chars
		}
	}
	if !haveCmd || !haveIMU || len(conn.emg) == 0 {
		return nil, fmt.Errorf("ble: peripheral lacks the band services")
	}
	return conn, nil
}

// Run streams notifications into sink until ctx is canceled or the
// bridge is closed, reconnecting with a fixed delay whenever the link
// drops.
func (b *Bridge) Run(ctx context.Context, sink band.Sink) error {
	if b == nil {
		return fmt.Errorf("ble: bridge is nil")
	}
	if sink == nil {
		return fmt.Errorf("ble: sink is nil")
	}
	if err := b.enable(); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn := b.currentConn()
		if conn == nil {
			var err error
			conn, err = b.connect(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("ble: reconnect failed: %v", err)
				if !b.sleep(ctx, b.cfg.ReconnectDelay) {
					return ctx.Err()
				}
				continue
			}
			b.setConn(conn)
		}

		if err := b.subscribe(conn, sink); err != nil {
			log.Printf("ble: subscribe failed: %v", err)
			b.dropConn(conn)
			if !b.sleep(ctx, b.cfg.ReconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case <-conn.lost:
			log.Printf("ble: band link lost after imu=%d emg=%d packets; reconnecting",
				b.imuPackets.Load(), b.emgPackets.Load())
			b.dropConn(conn)
		}
	}
}

func (b *Bridge) subscribe(conn *connection, sink band.Sink) error {
	if err := conn.imu.EnableNotifications(func(buf []byte) {
		f, err := band.DecodeIMUPacket(buf)
		if err != nil {
			return
		}
		b.imuPackets.Add(1)
		sink.HandleIMU(f)
	}); err != nil {
		return fmt.Errorf("ble: imu notifications: %w", err)
	}

	for i := range conn.emg {
		ch := conn.emg[i]
		if err := ch.EnableNotifications(func(buf []byte) {
			pair, err := band.DecodeEMGPacket(buf)
			if err != nil {
				return
			}
			b.emgPackets.Add(1)
			sink.HandleEMG(pair[0])
			sink.HandleEMG(pair[1])
		}); err != nil {
			return fmt.Errorf("ble: emg notifications: %w", err)
		}
	}
	return nil
}

// Vibrate drives the band motor over the current link.
func (b *Bridge) Vibrate(v band.Vibration) error {
	if b == nil {
		return fmt.Errorf("ble: bridge is nil")
	}
	conn := b.currentConn()
	if conn == nil {
		return fmt.Errorf("ble: band is not connected")
	}
	if _, err := conn.command.WriteWithoutResponse(band.VibrateCommand(v)); err != nil {
		return fmt.Errorf("ble: vibrate: %w", err)
	}
	return nil
}

// Close drops the link and stops any Run loop. Safe to call more than
// once.
func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conn := b.conn
	b.conn = nil
	close(b.done)
	b.mu.Unlock()

	if conn != nil {
		conn.markLost()
		return conn.device.Disconnect()
	}
	return nil
}

func (b *Bridge) currentConn() *connection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

// setConn stores a fresh link, or tears it down when the bridge was
// closed while the link was being established.
func (b *Bridge) setConn(conn *connection) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.markLost()
		_ = conn.device.Disconnect()
		return
	}
	b.conn = conn
	b.mu.Unlock()
}

// dropConn tears down conn if it is still current.
func (b *Bridge) dropConn(conn *connection) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
	conn.markLost()
	_ = conn.device.Disconnect()
}

func (b *Bridge) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	case <-t.C:
		return true
	}
}
