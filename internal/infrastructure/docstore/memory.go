package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development.
// It honors the same contract as the postgres store, including full-result-set
// subscription callbacks on every change.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
	subs        map[int]*memorySub
	nextSub     int
}

type memorySub struct {
	collection string
	filters    []Filter
	fn         func([]Document)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
		subs:        make(map[int]*memorySub),
	}
}

func cloneRecord(rec Record) Record {
	// JSON round-trip, so stored values cannot share memory with callers and
	// numbers normalize to float64 the way the real store returns them.
	data, err := json.Marshal(rec)
	if err != nil {
		panic(fmt.Sprintf("docstore: unencodable record: %v", err))
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, rec Record) error {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Record)
	}
	s.collections[collection][id] = cloneRecord(rec)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) UpdateFields(ctx context.Context, collection, id string, fields Record) error {
	s.mu.Lock()
	existing, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	merged := cloneRecord(existing)
	for k, v := range cloneRecord(fields) {
		merged[k] = v
	}
	s.collections[collection][id] = merged
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) BatchUpdateFields(ctx context.Context, collection string, updates map[string]Record) error {
	s.mu.Lock()
	for id := range updates {
		if _, ok := s.collections[collection][id]; !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
	}
	for id, fields := range updates {
		merged := cloneRecord(s.collections[collection][id])
		for k, v := range cloneRecord(fields) {
			merged[k] = v
		}
		s.collections[collection][id] = merged
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(collection, filters)
}

func (s *MemoryStore) queryLocked(collection string, filters []Filter) ([]Document, error) {
	docs := make([]Document, 0)
	for id, rec := range s.collections[collection] {
		match := true
		for _, f := range filters {
			ok, err := matchFilter(rec, f)
			if err != nil {
				return nil, err
			}
			if !ok {
				match = false
				break
			}
		}
		if match {
			docs = append(docs, Document{ID: id, Data: cloneRecord(rec)})
		}
	}
	return docs, nil
}

func matchFilter(rec Record, f Filter) (bool, error) {
	val, ok := rec[f.Field]
	if !ok {
		return false, nil
	}
	switch f.Op {
	case OpEqual:
		return jsonEqual(val, f.Value), nil
	case OpContains:
		arr, ok := val.([]interface{})
		if !ok {
			return false, nil
		}
		for _, elem := range arr {
			if jsonEqual(elem, f.Value) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported filter op %q", f.Op)
	}
}

// jsonEqual compares two values after JSON normalization, so uuid-ish strings,
// ints and float64s compare the way they would inside the real store.
func jsonEqual(a, b interface{}) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	var an, bn interface{}
	if err := json.Unmarshal(aj, &an); err != nil {
		return false
	}
	if err := json.Unmarshal(bj, &bn); err != nil {
		return false
	}
	return reflect.DeepEqual(an, bn)
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, filters []Filter, fn func([]Document)) (func(), error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &memorySub{collection: collection, filters: filters, fn: fn}
	docs, err := s.queryLocked(collection, filters)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	fn(docs)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

func (s *MemoryStore) notify(collection string) {
	s.mu.RLock()
	type delivery struct {
		fn   func([]Document)
		docs []Document
	}
	var deliveries []delivery
	for _, sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		docs, err := s.queryLocked(collection, sub.filters)
		if err != nil {
			continue
		}
		deliveries = append(deliveries, delivery{fn: sub.fn, docs: docs})
	}
	s.mu.RUnlock()

	for _, d := range deliveries {
		d.fn(d.docs)
	}
}
