// Package docstore provides the document persistence contract the task core
// is written against: point reads and writes, partial field merges, equality
// queries and live subscriptions over schemaless JSON records.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
)

// Record is the wire shape of a stored document. Values are plain JSON types;
// timestamps travel as RFC3339 strings, the store's native timestamp form.
// Keys with empty values must be omitted by the encoder, never written as
// explicit nulls.
type Record map[string]interface{}

// Document pairs a record with its store-assigned id.
type Document struct {
	ID   string
	Data Record
}

// Op is a filter operator.
type Op string

const (
	// OpEqual matches documents whose field equals the value.
	OpEqual Op = "=="
	// OpContains matches documents whose array field contains the value.
	OpContains Op = "array-contains"
)

// Filter is a single equality-style query constraint.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Store is the document store contract. Implementations must treat
// UpdateFields as a merge (untouched fields survive) and must deliver the
// full current result set to subscription callbacks on every change; result
// ordering is the caller's responsibility.
type Store interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Put(ctx context.Context, collection, id string, rec Record) error
	UpdateFields(ctx context.Context, collection, id string, fields Record) error
	// BatchUpdateFields applies several partial updates in one write batch.
	BatchUpdateFields(ctx context.Context, collection string, updates map[string]Record) error
	Query(ctx context.Context, collection string, filters []Filter) ([]Document, error)
	// Subscribe invokes fn with the full filtered result set immediately and
	// again after every change to the collection. The returned function stops
	// the subscription.
	Subscribe(ctx context.Context, collection string, filters []Filter, fn func([]Document)) (func(), error)
}
