// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"v.io/x/ref/lib/kernel/trace"
)

// Port is a rendezvous channel carrying integers. Send does not return
// until a receiver has taken the value, and at most one value is in flight
// at a time.
type Port struct {
	k    *Kernel
	name string
	lock *Lock
	// sendWait is signalled when a value is published, recvWait when one
	// is consumed.
	sendWait *Condition
	recvWait *Condition

	full  bool
	value int
	// sent and received count the values published and consumed. A sender
	// waits until received reaches the ticket of its own value.
	sent, received uint64
}

// NewPort returns an empty port.
func NewPort(k *Kernel, name string) *Port {
	l := NewLock(k, name)
	return &Port{
		k:        k,
		name:     name,
		lock:     l,
		sendWait: NewCondition(name+".send", l),
		recvWait: NewCondition(name+".recv", l),
	}
}

// Name returns the debug name of the port.
func (p *Port) Name() string { return p.name }

// Send hands value over to a receiver and waits until it has been received.
func (p *Port) Send(value int) {
	p.lock.Acquire()
	for p.full {
		p.recvWait.Wait()
	}
	p.value = value
	p.full = true
	p.sent++
	ticket := p.sent
	cur := p.k.current
	p.k.record(trace.Event{Thread: cur.name, Kind: trace.Send, Object: p.name, Priority: cur.priority, Value: value})
	p.sendWait.Signal()
	for p.received < ticket {
		p.recvWait.Wait()
	}
	p.lock.Release()
}

// Receive waits for a sender and returns its value.
func (p *Port) Receive() int {
	p.lock.Acquire()
	for !p.full {
		p.sendWait.Wait()
	}
	value := p.value
	p.full = false
	p.received++
	cur := p.k.current
	p.k.record(trace.Event{Thread: cur.name, Kind: trace.Receive, Object: p.name, Priority: cur.priority, Value: value})
	// Wakes both the sender of this value and any sender waiting for the
	// slot.
	p.recvWait.Broadcast()
	p.lock.Release()
	return value
}
