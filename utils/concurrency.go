package utils

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// KeyedMutex hands out one mutex per key so that work on different keys
// never contends on a shared lock.
type KeyedMutex struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: xsync.NewMapOf[string, *sync.Mutex](),
	}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	mu, _ := k.locks.LoadOrCompute(key, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

// Len returns how many keys have been locked at least once.
func (k *KeyedMutex) Len() int {
	return k.locks.Size()
}
