package storage

import (
	"sync"
	"time"
)

// MemoryStorage keeps values in a map behind a RWMutex. Every write bumps a
// storage-wide version counter, so a persisted snapshot can be checked
// against the current entry before its dirty flag is dropped.
type MemoryStorage[K comparable, V any] struct {
	mutex sync.RWMutex

	data       map[K]V
	dirty      map[K]bool
	versions   map[K]uint64
	lastUpdate map[K]time.Time
	version    uint64
}

var _ Storage[string, int] = (*MemoryStorage[string, int])(nil)

func NewMemoryStorage[K comparable, V any]() *MemoryStorage[K, V] {
	return &MemoryStorage[K, V]{
		data:       make(map[K]V),
		dirty:      make(map[K]bool),
		versions:   make(map[K]uint64),
		lastUpdate: make(map[K]time.Time),
	}
}

// write stores value under key. The caller holds the write lock.
func (s *MemoryStorage[K, V]) write(key K, value V, dirty bool) {
	s.version++
	s.data[key] = value
	s.versions[key] = s.version
	s.lastUpdate[key] = time.Now()
	if dirty {
		s.dirty[key] = true
	} else {
		delete(s.dirty, key)
	}
}

// Set writes a changed value; it stays dirty until persisted.
func (s *MemoryStorage[K, V]) Set(key K, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.write(key, value, true)
}

// Load writes a value that already matches the backing store.
func (s *MemoryStorage[K, V]) Load(key K, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.write(key, value, false)
}

func (s *MemoryStorage[K, V]) Get(key K) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, exists := s.data[key]
	return value, exists
}

// Delete forgets key entirely, dirty flag included. It reports whether the
// key was present.
func (s *MemoryStorage[K, V]) Delete(key K) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.data[key]; !exists {
		return false
	}
	delete(s.data, key)
	delete(s.dirty, key)
	delete(s.versions, key)
	delete(s.lastUpdate, key)
	return true
}

func (s *MemoryStorage[K, V]) GetAll() map[K]V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[K]V, len(s.data))
	for k, v := range s.data {
		result[k] = v
	}
	return result
}

// GetAllValues returns the values in map order.
func (s *MemoryStorage[K, V]) GetAllValues() []V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]V, 0, len(s.data))
	for _, v := range s.data {
		result = append(result, v)
	}
	return result
}

// GetDirty snapshots the unsaved entries. Flags are left set.
func (s *MemoryStorage[K, V]) GetDirty() map[K]V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[K]V, len(s.dirty))
	for k := range s.dirty {
		result[k] = s.data[k]
	}
	return result
}

// GetDirtyVersions is GetDirty with the version of each entry, for use with
// ClearDirtyIfUnchanged.
func (s *MemoryStorage[K, V]) GetDirtyVersions() map[K]Versioned[V] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[K]Versioned[V], len(s.dirty))
	for k := range s.dirty {
		result[k] = Versioned[V]{Value: s.data[k], Version: s.versions[k]}
	}
	return result
}

// ClearDirty drops the flags of keys unconditionally.
func (s *MemoryStorage[K, V]) ClearDirty(keys []K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, k := range keys {
		delete(s.dirty, k)
	}
}

// ClearDirtyIfUnchanged drops the flag of key only if the entry is still at
// version. It reports false when a newer write happened, which then stays
// dirty for the next save.
func (s *MemoryStorage[K, V]) ClearDirtyIfUnchanged(key K, version uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if v, ok := s.versions[key]; !ok || v != version {
		return false
	}
	delete(s.dirty, key)
	return true
}

func (s *MemoryStorage[K, V]) LastUpdate(key K) (time.Time, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.lastUpdate[key]
	return t, ok
}

// ForEach visits a copy of the entries until fn returns false, so fn may
// write back into the storage.
func (s *MemoryStorage[K, V]) ForEach(fn func(key K, value V) bool) {
	s.mutex.RLock()
	items := make(map[K]V, len(s.data))
	for k, v := range s.data {
		items[k] = v
	}
	s.mutex.RUnlock()

	for k, v := range items {
		if !fn(k, v) {
			return
		}
	}
}

func (s *MemoryStorage[K, V]) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}
