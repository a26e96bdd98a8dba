package storage

// Storage is a keyed in-memory store that remembers which entries changed
// since they were last persisted.
type Storage[K comparable, V any] interface {
	Set(key K, value V)
	Load(key K, value V)
	Get(key K) (V, bool)
	Delete(key K) bool
	GetAll() map[K]V
	GetAllValues() []V
	GetDirty() map[K]V
	GetDirtyVersions() map[K]Versioned[V]
	ClearDirty(keys []K)
	ClearDirtyIfUnchanged(key K, version uint64) bool
	ForEach(fn func(key K, value V) bool)
	Count() int
}

// Versioned is a value together with the write that produced it.
type Versioned[V any] struct {
	Value   V
	Version uint64
}
