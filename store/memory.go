package store

import (
	"context"
	"sync"
)

// broadcaster fans snapshots out to subscribers. A lagging subscriber loses its
// oldest pending snapshot, never the newest.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan Document]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan Document]struct{})}
}

func (b *broadcaster) subscribe() chan Document {
	ch := make(chan Document, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Document) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *broadcaster) publish(doc Document) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- doc.Clone():
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- doc.Clone():
			default:
			}
		}
	}
	b.mu.Unlock()
}

// MemoryStore keeps documents in process. Used for single-instance play and tests.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document
	hubs map[string]*broadcaster
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		hubs: make(map[string]*broadcaster),
	}
}

func (s *MemoryStore) hub(key string) *broadcaster {
	h, ok := s.hubs[key]
	if !ok {
		h = newBroadcaster()
		s.hubs[key] = h
	}
	return h
}

func (s *MemoryStore) Create(ctx context.Context, key string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[key]; ok {
		return ErrAlreadyExists
	}

	s.docs[key] = doc.Clone()
	s.hub(key).publish(s.docs[key])

	return nil
}

func (s *MemoryStore) Read(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}

	return doc.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, fields Document) error {
	return s.UpdateIf(ctx, key, nil, fields)
}

func (s *MemoryStore) UpdateIf(ctx context.Context, key string, check func(Document) error, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return ErrNotFound
	}

	if check != nil {
		if err := check(doc.Clone()); err != nil {
			return err
		}
	}

	for k, v := range fields {
		doc[k] = v
	}

	s.hub(key).publish(doc)

	return nil
}

func (s *MemoryStore) UpdateUnless(ctx context.Context, key, field, value string, fields Document) error {
	return s.UpdateIf(ctx, key, func(doc Document) error {
		if doc[field] == value {
			return ErrGuarded
		}
		return nil
	}, fields)
}

type memorySubscription struct {
	once sync.Once
	hub  *broadcaster
	ch   chan Document
}

func (m *memorySubscription) Unsubscribe() error {
	m.once.Do(func() {
		m.hub.unsubscribe(m.ch)
	})
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, key string, onChange func(Document)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	hub := s.hub(key)
	ch := hub.subscribe()
	if doc, ok := s.docs[key]; ok {
		ch <- doc.Clone()
	}
	s.mu.Unlock()

	go func() {
		for doc := range ch {
			onChange(doc)
		}
	}()

	return &memorySubscription{hub: hub, ch: ch}, nil
}
