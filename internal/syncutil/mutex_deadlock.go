//go:build deadlock

// Package syncutil provides the locks shared by links and adapters.
// This file is compiled with -tags=deadlock and swaps in go-deadlock so a
// stuck round trip reports the goroutines holding the channel.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex is a deadlock-detecting mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock-detecting read/write mutex.
type RWMutex struct {
	deadlock.RWMutex
}
