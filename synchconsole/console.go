// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synchconsole provides synchronized access to the simulated
// console device of a threads.Kernel.
//
// The console device is asynchronous: writing a character, or asking for
// the next input character, completes ConsoleTime ticks later with an
// interrupt. A Console turns this into blocking calls for kernel threads,
// and serializes readers and writers so that, for example, lines written by
// different threads with a single Write never interleave.
package synchconsole

import (
	"bufio"
	"errors"
	"io"

	"v.io/v23/verror"
	"v.io/x/ref/lib/kernel/threads"
)

// ConsoleTime is the number of ticks the device takes to read or write a
// character.
const ConsoleTime = 100

var (
	ErrWrite = verror.NewID("Write")
	ErrRead  = verror.NewID("Read")
)

// Stats counts the characters that went through a Console.
type Stats struct {
	Read, Written int
}

// Console is a synchronized console. Its methods may only be called by
// threads of the kernel it was created for.
type Console struct {
	k   *threads.Kernel
	in  *bufio.Reader
	out io.Writer

	readers, writers     *threads.Lock
	readAvail, writeDone *threads.Semaphore

	// incoming and inErr hold the result of the last read request.
	incoming byte
	inErr    error
	stats    Stats
}

// New returns a console that reads from in and writes to out. A nil in
// behaves as an empty input.
func New(k *threads.Kernel, in io.Reader, out io.Writer) *Console {
	c := &Console{
		k:         k,
		out:       out,
		readers:   threads.NewLock(k, "console.readers"),
		writers:   threads.NewLock(k, "console.writers"),
		readAvail: threads.NewSemaphore(k, "console.readAvail", 0),
		writeDone: threads.NewSemaphore(k, "console.writeDone", 0),
	}
	if in != nil {
		c.in = bufio.NewReader(in)
	}
	return c
}

// PutChar writes a character, waiting for the device to complete it.
func (c *Console) PutChar(ch byte) error {
	c.writers.Acquire()
	err := c.put(ch)
	c.writers.Release()
	return err
}

// Write writes p one character at a time. No other thread writes to the
// console until Write returns.
func (c *Console) Write(p []byte) (int, error) {
	c.writers.Acquire()
	n := 0
	var err error
	for _, ch := range p {
		if err = c.put(ch); err != nil {
			break
		}
		n++
	}
	c.writers.Release()
	return n, err
}

func (c *Console) put(ch byte) error {
	_, err := c.out.Write([]byte{ch})
	c.k.Interrupt().Schedule(c.writeDone.V, ConsoleTime, threads.ConsoleWriteInt)
	c.writeDone.P()
	if err != nil {
		return ErrWrite.Errorf(c.k.Context(), "console write failed: %w", err)
	}
	c.stats.Written++
	return nil
}

// GetChar waits for the next input character. It returns io.EOF once the
// input is exhausted.
func (c *Console) GetChar() (byte, error) {
	c.readers.Acquire()
	ch, err := c.get()
	c.readers.Release()
	return ch, err
}

func (c *Console) get() (byte, error) {
	c.k.Interrupt().Schedule(c.readDone, ConsoleTime, threads.ConsoleReadInt)
	c.readAvail.P()
	return c.incoming, c.inErr
}

// readDone is the device read completion handler.
func (c *Console) readDone() {
	c.incoming, c.inErr = 0, io.EOF
	if c.in != nil {
		ch, err := c.in.ReadByte()
		switch {
		case err == nil:
			c.incoming, c.inErr = ch, nil
			c.stats.Read++
		case !errors.Is(err, io.EOF):
			c.inErr = ErrRead.Errorf(c.k.Context(), "console read failed: %w", err)
		}
	}
	c.k.Context().VI(3).Infof("console: read %q, %v", c.incoming, c.inErr)
	c.readAvail.V()
}

// ReadLine reads up to the next newline, which is not returned. A final
// line without a newline is returned with a nil error; io.EOF is only
// returned when no character was read. No other thread reads from the
// console until ReadLine returns.
func (c *Console) ReadLine() (string, error) {
	c.readers.Acquire()
	var line []byte
	var err error
	for {
		var ch byte
		if ch, err = c.get(); err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				err = nil
			}
			break
		}
		if ch == '\n' {
			break
		}
		line = append(line, ch)
	}
	c.readers.Release()
	return string(line), err
}

// Stats returns the number of characters read and written so far.
func (c *Console) Stats() Stats {
	return c.stats
}
