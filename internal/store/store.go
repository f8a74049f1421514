package store

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrUnexpectedDatabase = errors.New("unexpected database error")
)

// WatchFunc receives the current body of a watched key. err is ErrNotFound
// when the key was deleted and any other error when the backend lost its
// connection; body is nil in both cases.
type WatchFunc func(body []byte, err error)

// Documents is an opaque key-value document store. Bodies are JSON.
type Documents interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
	// Watch delivers the current value once, then every change, until
	// cancel is called or ctx ends.
	Watch(ctx context.Context, key string, fn WatchFunc) (func(), error)
}

// watchers fans changes out to in-process subscribers. Callbacks run
// outside the lock so they may call back into the store.
type watchers struct {
	mu     sync.Mutex
	nextID int
	byKey  map[string]map[int]WatchFunc
}

func (w *watchers) add(key string, fn WatchFunc) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.byKey == nil {
		w.byKey = map[string]map[int]WatchFunc{}
	}
	if w.byKey[key] == nil {
		w.byKey[key] = map[int]WatchFunc{}
	}
	id := w.nextID
	w.nextID++
	w.byKey[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.byKey[key], id)
			if len(w.byKey[key]) == 0 {
				delete(w.byKey, key)
			}
		})
	}
}

func (w *watchers) notify(key string, body []byte, err error) {
	w.mu.Lock()
	fns := make([]WatchFunc, 0, len(w.byKey[key]))
	for _, fn := range w.byKey[key] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(clone(body), err)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// watchLocal registers fn, delivers the current value and ties the
// registration to ctx.
func watchLocal(ctx context.Context, w *watchers, docs Documents, key string, fn WatchFunc) (func(), error) {
	body, err := docs.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	cancel := w.add(key, fn)
	fn(body, err)

	stop := context.AfterFunc(ctx, cancel)
	return func() {
		stop()
		cancel()
	}, nil
}
