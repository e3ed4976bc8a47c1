package sim

import (
	"context"
	"fmt"
	"log"
	"time"

	"myohub/internal/band"
)

// BridgeConfig configures a simulated band.
type BridgeConfig struct {
	// ScriptPath selects the scenario YAML; empty plays DefaultScript.
	ScriptPath string

	// Loop overrides the script's own loop flag when set.
	Loop *bool
}

// Bridge plays a scenario in real time as if a band were streaming it.
type Bridge struct {
	scen *Scenario
}

// NewBridge loads and validates the scenario.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	script := DefaultScript()
	if cfg.ScriptPath != "" {
		var err error
		script, err = LoadScript(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("sim: load script: %w", err)
		}
	}
	if cfg.Loop != nil {
		script.Loop = *cfg.Loop
	}
	scen, err := NewScenario(script)
	if err != nil {
		return nil, err
	}
	return &Bridge{scen: scen}, nil
}

// Scenario exposes the validated scenario, mainly for status reporting.
func (b *Bridge) Scenario() *Scenario {
	if b == nil {
		return nil
	}
	return b.scen
}

// Configure is a no-op; there is no hardware to set up.
func (b *Bridge) Configure(ctx context.Context) error { return nil }

// Vibrate logs the request; the simulated band has no motor.
func (b *Bridge) Vibrate(v band.Vibration) error {
	log.Printf("sim: vibrate pattern=%d", v)
	return nil
}

// Close is a no-op.
func (b *Bridge) Close() error { return nil }

// Run emits EMG and IMU frames on their scripted cadence until the
// scenario ends or ctx is canceled. Elapsed time is derived from the
// frame count, not the wall clock, so ticker jitter never skips
// segments.
func (b *Bridge) Run(ctx context.Context, sink band.Sink) error {
	if b == nil || b.scen == nil {
		return fmt.Errorf("sim: bridge is not initialized")
	}
	if sink == nil {
		return fmt.Errorf("sim: sink is nil")
	}

	period := b.scen.EMGPeriod()
	imuEvery := b.scen.IMUEvery()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for tick := uint64(0); ; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		elapsed := time.Duration(tick) * period
		emg, ok := b.scen.EMGAt(elapsed)
		if !ok {
			log.Printf("sim: scenario finished after %v", b.scen.Duration())
			return nil
		}
		sink.HandleEMG(emg)

		if tick%uint64(imuEvery) == 0 {
			if imu, ok := b.scen.IMUAt(elapsed); ok {
				sink.HandleIMU(imu)
			}
		}
	}
}
