// Package udp pushes newline-terminated JSON event datagrams to fixed
// destinations, for listeners too simple to hold a TCP or MQTT session.
package udp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"myohub/internal/events"
)

// udpConn is the part of *net.UDPConn the broadcaster uses.
type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// target is one resolved destination.
type target struct {
	dest string
	conn udpConn
}

type Broadcaster struct {
	targets []target

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewBroadcaster dials every destination up front so bad addresses
// surface at startup.
func NewBroadcaster(dests []string) (*Broadcaster, error) {
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		// DialUDP selects a suitable local address automatically.
		return net.DialUDP(network, laddr, raddr)
	}
	return newBroadcaster(dests, net.ResolveUDPAddr, dial)
}

func newBroadcaster(dests []string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	if len(dests) == 0 {
		return nil, fmt.Errorf("udp: no destinations")
	}
	b := &Broadcaster{}
	for _, dest := range dests {
		addr, err := resolve("udp", dest)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("udp: resolve %s: %w", dest, err)
		}
		conn, err := dial("udp", nil, addr)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("udp: dial %s: %w", dest, err)
		}
		b.targets = append(b.targets, target{dest: dest, conn: conn})
	}
	return b, nil
}

// Send writes ev as one JSON line datagram to every destination. Send
// errors are logged and counted; one deaf listener must not mute the
// others.
func (b *Broadcaster) Send(ev events.Event) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("udp: marshal event: %v", err)
		return
	}
	payload = append(payload, '\n')
	for _, t := range b.targets {
		if _, err := t.conn.Write(payload); err != nil {
			b.dropped.Add(1)
			log.Printf("udp: send %s: %v", t.dest, err)
			continue
		}
		b.sent.Add(1)
	}
}

// Run consumes events from ch until ctx is done or the channel closes.
func (b *Broadcaster) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			b.Send(ev)
		}
	}
}

// Counters reports datagrams delivered and failed since start.
func (b *Broadcaster) Counters() (sent, dropped uint64) {
	if b == nil {
		return 0, 0
	}
	return b.sent.Load(), b.dropped.Load()
}

func (b *Broadcaster) Close() error {
	if b == nil {
		return nil
	}
	var first error
	for _, t := range b.targets {
		if t.conn == nil {
			continue
		}
		if err := t.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.targets = nil
	return first
}
