// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"errors"
	"sync"

	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/internal/notify"
	"github.com/pdiddy/fulltext/pkg/types"
)

// fakeEngine hands out sequential handles and reports configured states.
type fakeEngine struct {
	mu          sync.Mutex
	submitErr   error
	submissions []engine.Submission
	results     map[string]engine.Result
	queries     int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{results: map[string]engine.Result{}}
}

func (f *fakeEngine) Submit(_ context.Context, s engine.Submission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submissions = append(f.submissions, s)
	return "H" + string(rune('0'+len(f.submissions))), nil
}

func (f *fakeEngine) Query(_ context.Context, id string) (engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if r, ok := f.results[id]; ok {
		return r, nil
	}
	return engine.Result{State: engine.StateQueued}, nil
}

func (f *fakeEngine) set(id string, r engine.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[id] = r
}

// memStore is an in-memory store.Store.
type memStore struct {
	mu             sync.Mutex
	placeholders   map[types.Key]types.ExtractionPlaceholder
	products       map[types.Key]types.ExtractionProduct
	putPlaceholder error
	putProduct     error
	productWrites  int
}

func newMemStore() *memStore {
	return &memStore{
		placeholders: map[types.Key]types.ExtractionPlaceholder{},
		products:     map[types.Key]types.ExtractionProduct{},
	}
}

func (m *memStore) PutPlaceholder(_ context.Context, p types.ExtractionPlaceholder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putPlaceholder != nil {
		return m.putPlaceholder
	}
	m.placeholders[p.Key()] = p
	return nil
}

func (m *memStore) GetPlaceholder(_ context.Context, key types.Key) (*types.ExtractionPlaceholder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.placeholders[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) PutProduct(_ context.Context, p types.ExtractionProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putProduct != nil {
		return m.putProduct
	}
	m.productWrites++
	m.products[p.Key()] = p
	return nil
}

func (m *memStore) GetProduct(_ context.Context, key types.Key) (*types.ExtractionProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// fakeRetriever serves documents by URL; unknown URLs do not exist.
type fakeRetriever struct {
	docs map[string][]byte
	err  error
}

func (f *fakeRetriever) Retrieve(_ context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[url]
	if !ok {
		return nil, errDoesNotExist(url)
	}
	return doc, nil
}

// echoExtractor "extracts" by echoing the bytes as text.
type echoExtractor struct {
	err error
}

func (e echoExtractor) Extract(_ context.Context, pdf []byte) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "text of " + string(pdf), nil
}

type recordingPublisher struct {
	events []notify.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

var errBoom = errors.New("boom")
