package juicecmd

import (
	"bytes"
	"fmt"
	"iter"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	goccy "github.com/goccy/go-json"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); !ok {
		return errors.WithStack(err)
	}
	return err
}

func StackTrace(err error) string {
	buf := &bytes.Buffer{}
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			for _, f := range st.StackTrace() {
				fmt.Fprintf(buf, "%+v\n", f)
			}
			return buf.String()
		}
		err = errors.Unwrap(err)
	}
	return buf.String()
}

// Recover runs f and converts a panic inside it into an error carrying the
// stack of the panic site.
func Recover(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.WithStack(e)
			} else {
				err = errors.Errorf("panic: %v", r)
			}
		}
	}()
	return f()
}

// SnapshotMap is a copy-on-write map. Readers get the current snapshot
// without locking, writers serialize on a mutex and publish a new snapshot.
type SnapshotMap[K comparable, V any] struct {
	mutex    sync.Mutex
	snapshot atomic.Pointer[map[K]V]
}

func NewSnapshotMap[K comparable, V any]() *SnapshotMap[K, V] {
	s := &SnapshotMap[K, V]{}
	m := map[K]V{}
	s.snapshot.Store(&m)
	return s
}

func (s *SnapshotMap[K, V]) load() map[K]V {
	if p := s.snapshot.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *SnapshotMap[K, V]) Clone() map[K]V {
	return maps.Clone(s.load())
}

func (s *SnapshotMap[K, V]) Replace(m map[K]V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cpy := maps.Clone(m)
	if cpy == nil {
		cpy = map[K]V{}
	}
	s.snapshot.Store(&cpy)
}

// Update runs f on a private copy of the map while holding the write lock.
// The copy is published only if f returns nil.
func (s *SnapshotMap[K, V]) Update(f func(m map[K]V) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cpy := maps.Clone(s.load())
	if cpy == nil {
		cpy = map[K]V{}
	}
	if err := f(cpy); err != nil {
		return err
	}
	s.snapshot.Store(&cpy)
	return nil
}

func (s *SnapshotMap[K, V]) MarshalJSON() ([]byte, error) {
	return goccy.Marshal(s.load())
}

func (s *SnapshotMap[K, V]) Keys() iter.Seq[K] {
	return maps.Keys(s.load())
}

func (s *SnapshotMap[K, V]) Values() iter.Seq[V] {
	return maps.Values(s.load())
}

func (s *SnapshotMap[K, V]) Each() iter.Seq2[K, V] {
	return maps.All(s.load())
}

func (s *SnapshotMap[K, V]) GetHas(key K) (V, bool) {
	v, found := s.load()[key]
	return v, found
}

func (s *SnapshotMap[K, V]) Get(key K) V {
	return s.load()[key]
}

func (s *SnapshotMap[K, V]) Has(key K) bool {
	_, found := s.load()[key]
	return found
}

func (s *SnapshotMap[K, V]) Len() int {
	return len(s.load())
}

func (s *SnapshotMap[K, V]) Set(key K, value V) {
	s.Update(func(m map[K]V) error {
		m[key] = value
		return nil
	})
}

func (s *SnapshotMap[K, V]) Del(key K) {
	s.Update(func(m map[K]V) error {
		delete(m, key)
		return nil
	})
}
