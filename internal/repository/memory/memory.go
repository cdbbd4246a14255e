// Package memory is an in-process document store.
//
// It implements repository.Store with the subset of document store
// semantics the API relies on: generated ObjectIDs, insertion-ordered
// listing, top-level equality filters, $set merge-patches and modified
// counts that stay at zero when a patch changes nothing. Documents are
// normalised through a BSON round trip so values compare exactly as the
// real store would see them.
//
// Used by STORE_DRIVER=memory and by tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/agenda-api/internal/repository"
)

var (
	_ repository.Store      = (*Store)(nil)
	_ repository.Collection = (*Collection)(nil)
)

type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func New() *Store {
	return &Store{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) repository.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &Collection{docs: make(map[primitive.ObjectID]bson.M)}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

type Collection struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]bson.M
}

func (c *Collection) InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, err
	}

	m, err := normalize(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := m["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		m["_id"] = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; exists {
		return primitive.NilObjectID, fmt.Errorf("memory: duplicate key _id %s", id.Hex())
	}
	c.docs[id] = m
	c.order = append(c.order, id)
	return id, nil
}

func (c *Collection) FindOne(ctx context.Context, filter bson.D) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if doc := c.docs[id]; matches(doc, f) {
			return bson.Marshal(doc)
		}
	}
	return nil, repository.ErrNoDocument
}

func (c *Collection) Find(ctx context.Context, filter bson.D) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]bson.Raw, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, f) {
			continue
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter bson.D, set bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	patch, err := normalize(set)
	if err != nil {
		return 0, err
	}
	if _, ok := patch["_id"]; ok {
		return 0, fmt.Errorf("memory: _id is immutable")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, f) {
			continue
		}
		changed := false
		for k, v := range patch {
			if cur, ok := doc[k]; !ok || !reflect.DeepEqual(cur, v) {
				doc[k] = v
				changed = true
			}
		}
		if changed {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter bson.D) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, id := range c.order {
		if !matches(c.docs[id], f) {
			continue
		}
		delete(c.docs, id)
		c.order = append(c.order[:i], c.order[i+1:]...)
		return 1, nil
	}
	return 0, nil
}

// Len reports how many documents the collection holds.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func normalize(v any) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memory: encoding document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("memory: decoding document: %w", err)
	}
	return m, nil
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
