package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Collection is a typed view over one top-level collection. T is the Firestore document
// shape, tagged with `firestore:"..."`.
type Collection[T any] struct {
	provider *Provider
	name     string
}

// NewCollection binds name to provider.
func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: name}
}

// Ref returns the collection reference.
func (c *Collection[T]) Ref(ctx context.Context) (*firestore.CollectionRef, error) {
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name), nil
}

// Doc returns a document reference, rejecting ids Firestore would treat as paths.
func (c *Collection[T]) Doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return nil, &Error{op: c.name + ".doc", err: errors.New("invalid document id"), kind: kindNotFound}
	}
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	return ref.Doc(id), nil
}

// Get loads and decodes one document.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return out, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return out, WrapError(c.name+".get", err)
	}
	if err := snap.DataTo(&out); err != nil {
		return out, WrapError(c.name+".decode", err)
	}
	return out, nil
}

// Create writes a new document and fails with a conflict when it already exists.
func (c *Collection[T]) Create(ctx context.Context, id string, data T) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Create(ctx, data)
	return WrapError(c.name+".create", err)
}

// Set overwrites a document.
func (c *Collection[T]) Set(ctx context.Context, id string, data T) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, data)
	return WrapError(c.name+".set", err)
}

// Update applies field updates and fails with not found when the document is missing.
func (c *Collection[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Update(ctx, updates)
	return WrapError(c.name+".update", err)
}

// Delete removes a document, failing with not found when it is missing.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Delete(ctx, firestore.Exists)
	return WrapError(c.name+".delete", err)
}

// Document pairs a decoded document with its id.
type Document[T any] struct {
	ID   string
	Data T
}

// Query runs q and decodes every result.
func (c *Collection[T]) Query(ctx context.Context, q firestore.Query) ([]Document[T], error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.name+".query", err)
		}
		var data T
		if err := snap.DataTo(&data); err != nil {
			return nil, WrapError(c.name+".decode", err)
		}
		out = append(out, Document[T]{ID: snap.Ref.ID, Data: data})
	}
}
