package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"myohub/internal/band"
	"myohub/internal/ble"
	"myohub/internal/config"
	"myohub/internal/display"
	"myohub/internal/engine"
	"myohub/internal/events"
	"myohub/internal/gesture"
	"myohub/internal/haptics"
	"myohub/internal/mqttpub"
	"myohub/internal/replay"
	"myohub/internal/serial"
	"myohub/internal/sim"
	"myohub/internal/udp"
	"myohub/internal/uinput"
	"myohub/internal/web"
)

// daemon wires the configured band transport into the recognition engine
// and fans engine events out to the enabled outputs. The transport is
// required; outputs are best-effort, one failing to come up is logged and
// skipped while the rest keep running.
type daemon struct {
	cfg    config.Config
	stop   context.CancelFunc
	status *web.Status
	bus    *events.Bus
	hist   *events.History

	engine   *engine.Service
	recorder *replay.Recorder

	mqtt     *mqttpub.Publisher
	udpOut   *udp.Broadcaster
	keyboard *uinput.Keyboard
	haptic   *haptics.Service
	panel    *display.Service

	outputs []string
	wg      sync.WaitGroup
}

// buildBridge constructs the transport named by band.transport.
func buildBridge(cfg config.BandConfig) (band.Bridge, error) {
	switch cfg.Transport {
	case "sim":
		return sim.NewBridge(sim.BridgeConfig{ScriptPath: cfg.Sim.Script, Loop: &cfg.Sim.Loop})
	case "ble":
		return ble.NewBridge(ble.Config{
			Address:        cfg.BLE.Address,
			Name:           cfg.BLE.DeviceName,
			ScanTimeout:    cfg.BLE.ConnectTimeout,
			ReconnectDelay: cfg.BLE.ReconnectDelay,
		}), nil
	case "serial":
		return serial.NewBridge(serial.Config{Device: cfg.Serial.Device, Baud: cfg.Serial.Baud})
	case "replay":
		return replay.NewBridge(replay.BridgeConfig{
			Path:  cfg.Replay.Path,
			Speed: cfg.Replay.Speed,
			Loop:  cfg.Replay.Loop,
		})
	default:
		return nil, fmt.Errorf("unknown band.transport %q", cfg.Transport)
	}
}

// recordedBridge substitutes the session recorder as the frame sink. The
// recorder tees every frame into the log and forwards it to the engine,
// which is the sink the engine service hands in.
type recordedBridge struct {
	band.Bridge
	rec *replay.Recorder
}

func (b *recordedBridge) Run(ctx context.Context, sink band.Sink) error {
	if b.rec != nil {
		sink = b.rec
	}
	return b.Bridge.Run(ctx, sink)
}

func newDaemon(ctx context.Context, cfg config.Config, logs *web.LogRing) (*daemon, error) {
	ctx, stop := context.WithCancel(ctx)
	d := &daemon{
		cfg:    cfg,
		stop:   stop,
		status: web.NewStatus(),
		bus:    events.NewBus(),
		hist: events.NewHistory(events.HistoryConfig{
			Capacity: cfg.History.MaxEvents,
			MaxAge:   cfg.History.MaxAge,
		}),
	}

	bridge, err := buildBridge(cfg.Band)
	if err != nil {
		stop()
		return nil, err
	}

	runBridge := bridge
	var tee *recordedBridge
	if cfg.Record.Enable {
		tee = &recordedBridge{Bridge: bridge}
		runBridge = tee
	}

	d.engine = engine.New(engine.Config{
		Bridge:       runBridge,
		OnGesture:    func(g gesture.Label) { d.publish(events.NewGesture(g)) },
		OnLockChange: func(locked bool) { d.publish(events.NewLock(locked)) },
		OnSynced:     func() { d.publish(events.NewSynced()) },
	})

	if tee != nil {
		rec, err := replay.NewRecorder(cfg.Record.Path, d.engine)
		if err != nil {
			stop()
			_ = bridge.Close()
			return nil, fmt.Errorf("record init failed: %w", err)
		}
		tee.rec = rec
		d.recorder = rec
		log.Printf("recording session to %s", cfg.Record.Path)
	}

	d.status.SetTransport(cfg.Band.Transport)
	d.status.SetEngine(d.engine.Snapshot)

	if err := d.engine.Start(ctx); err != nil {
		d.Close()
		return nil, err
	}

	d.startOutputs(ctx, logs)
	d.status.SetOutputs(d.outputs)
	log.Printf("band transport=%s outputs=%v", cfg.Band.Transport, d.outputs)
	return d, nil
}

// publish stamps an engine transition onto the bus and mirrors it into
// the history the web API serves.
func (d *daemon) publish(ev events.Event) {
	d.hist.Add(d.bus.Publish(ev))
}

// startOutputs brings up every enabled output.
func (d *daemon) startOutputs(ctx context.Context, logs *web.LogRing) {
	if d.cfg.Web.Enable {
		listen := d.cfg.Web.Listen
		d.outputs = append(d.outputs, "web")
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := web.Serve(ctx, listen, d.status, d.hist, d.bus, logs); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
		log.Printf("web listening on %s", listen)
	}

	if d.cfg.MQTT.Enable {
		p := mqttpub.New(mqttpub.Config{
			Enable:      true,
			Broker:      d.cfg.MQTT.Broker,
			ClientID:    d.cfg.MQTT.ClientID,
			TopicPrefix: d.cfg.MQTT.TopicPrefix,
		})
		if err := p.Start(ctx); err != nil {
			log.Printf("mqtt output skipped: %v", err)
		} else {
			d.mqtt = p
			d.consume(ctx, "mqtt", p.Run)
		}
	}

	if d.cfg.UDP.Enable {
		b, err := udp.NewBroadcaster(d.cfg.UDP.Dests)
		if err != nil {
			log.Printf("udp output skipped: %v", err)
		} else {
			d.udpOut = b
			d.consume(ctx, "udp", b.Run)
		}
	}

	if d.cfg.Uinput.Enable {
		kb, err := newKeyboard(d.cfg.Uinput.Keymap)
		if err != nil {
			log.Printf("uinput output skipped: %v", err)
		} else {
			d.keyboard = kb
			d.consume(ctx, "uinput", kb.Run)
		}
	}

	if d.cfg.Haptics.Enable {
		h := haptics.New(haptics.Config{
			Enable:    true,
			Chip:      d.cfg.Haptics.Chip,
			MotorLine: d.cfg.Haptics.MotorLine,
			LEDLine:   d.cfg.Haptics.LEDLine,
		})
		if err := h.Start(ctx); err != nil {
			log.Printf("haptics output skipped: %v", err)
		} else {
			d.haptic = h
			d.consume(ctx, "haptics", h.Run)
		}
	}

	if d.cfg.Display.Enable {
		p := display.New(display.Config{
			Enable: true,
			Bus:    d.cfg.Display.I2CBus,
			Addr:   d.cfg.Display.Addr,
		}, d.engine.Snapshot)
		if err := p.Start(ctx); err != nil {
			log.Printf("display output skipped: %v", err)
		} else {
			d.panel = p
			d.consume(ctx, "display", p.Run)
		}
	}
}

func newKeyboard(overrides map[string]string) (*uinput.Keyboard, error) {
	keymap, err := uinput.BuildKeymap(overrides)
	if err != nil {
		return nil, err
	}
	return uinput.NewKeyboard(keymap)
}

// consume subscribes an output to the bus and pumps events into it until
// shutdown.
func (d *daemon) consume(ctx context.Context, name string, run func(context.Context, <-chan events.Event)) {
	ch, cancel := d.bus.Subscribe(16)
	d.outputs = append(d.outputs, name)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		run(ctx, ch)
	}()
}

// Close stops the engine first so no more events are produced, flushes
// the session log, then tears the outputs down. Safe on a partially
// constructed daemon.
func (d *daemon) Close() {
	if d == nil {
		return
	}
	d.stop()
	d.engine.Close()
	if d.recorder != nil {
		if err := d.recorder.Close(); err != nil {
			log.Printf("close session log: %v", err)
		}
	}
	d.bus.Close()
	d.wg.Wait()

	if d.mqtt != nil {
		d.mqtt.Close()
	}
	if d.udpOut != nil {
		_ = d.udpOut.Close()
	}
	if d.keyboard != nil {
		_ = d.keyboard.Close()
	}
	if d.haptic != nil {
		d.haptic.Close()
	}
	if d.panel != nil {
		d.panel.Close()
	}
}
