// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"fmt"

	"v.io/v23/verror"
)

// Misuse of the kernel API is a programming error: the kernel reports it by
// failing an assertion, which halts the machine and is returned by Boot.
var (
	ErrAlreadyBooted    = verror.NewID("AlreadyBooted")
	ErrRecursiveAcquire = verror.NewID("RecursiveAcquire")
	ErrNotHolder        = verror.NewID("NotHolder")
	ErrLockNotHeld      = verror.NewID("LockNotHeld")
	ErrInterruptsOn     = verror.NewID("InterruptsOn")
	ErrHandlerLevel     = verror.NewID("HandlerLevel")
	ErrNotInHandler     = verror.NewID("NotInHandler")
	ErrNotCurrent       = verror.NewID("NotCurrent")
	ErrInvalidState     = verror.NewID("InvalidState")
	ErrNoReadyThread    = verror.NewID("NoReadyThread")
	ErrAlreadyQueued    = verror.NewID("AlreadyQueued")
	ErrInvalidPriority  = verror.NewID("InvalidPriority")
	ErrInvalidArgument  = verror.NewID("InvalidArgument")
	ErrNotJoinable      = verror.NewID("NotJoinable")
	ErrSelfJoin         = verror.NewID("SelfJoin")
	ErrThreadPanic      = verror.NewID("ThreadPanic")
	ErrDeadlock         = verror.NewID("Deadlock")
)

// assertion is the panic value used for failed kernel assertions.
type assertion struct {
	err error
}

func (a assertion) String() string {
	return fmt.Sprintf("kernel assertion failed: %v", a.err)
}

// fatalf fails a kernel assertion. It does not return.
func (k *Kernel) fatalf(id verror.IDAction, format string, args ...interface{}) {
	err := id.Errorf(k.ctx, format, args...)
	k.ctx.Errorf("kernel %v: assertion failed: %v", k.id, err)
	panic(assertion{err})
}

// fatal fails a kernel assertion with an existing error. It does not return.
func (k *Kernel) fatal(err error) {
	k.ctx.Errorf("kernel %v: assertion failed: %v", k.id, err)
	panic(assertion{err})
}
