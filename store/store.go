package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrConflict      = errors.New("document changed concurrently")
	ErrGuarded       = errors.New("document guard rejected the write")
)

// Document is a flat field map. Nested values use dotted field names.
type Document map[string]string

func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Subscription stops snapshot delivery. Unsubscribe never waits on a running callback,
// so it is safe to call from inside one.
type Subscription interface {
	Unsubscribe() error
}

// Store is a multi-client-observable key/document store.
type Store interface {
	// Create fails with ErrAlreadyExists when key is taken.
	Create(ctx context.Context, key string, doc Document) error
	// Read fails with ErrNotFound when key is absent.
	Read(ctx context.Context, key string) (Document, error)
	// Update writes all fields atomically. Fails with ErrNotFound when key is absent.
	Update(ctx context.Context, key string, fields Document) error
	// UpdateIf runs check on the current document and writes fields only if check
	// returns nil and the document did not change in between. check's error is returned as is.
	UpdateIf(ctx context.Context, key string, check func(Document) error, fields Document) error
	// UpdateUnless writes fields atomically unless field already holds value, in which case
	// it returns ErrGuarded. Unlike UpdateIf it never fails because of concurrent writers.
	UpdateUnless(ctx context.Context, key, field, value string, fields Document) error
	// Subscribe delivers the current document once, then the full document after every change,
	// including changes made by the subscriber itself.
	Subscribe(ctx context.Context, key string, onChange func(Document)) (Subscription, error)
}
