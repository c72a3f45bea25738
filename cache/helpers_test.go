package cache

import (
	"bytes"
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"time"

	formversion "github.com/goliatone/go-formversion"
)

func quietLogger() formversion.Logger {
	return formversion.NewFmtLogger(&bytes.Buffer{})
}

type countingResolver struct {
	mu       sync.Mutex
	calls    map[string]int
	active   map[string]formversion.MergedForm
	private  map[string]formversion.MergedForm
	versions map[string][]formversion.FormVersion
	pages    []formversion.MergedFormPage
	err      error
}

func newCountingResolver() *countingResolver {
	return &countingResolver{
		calls:    map[string]int{},
		active:   map[string]formversion.MergedForm{},
		private:  map[string]formversion.MergedForm{},
		versions: map[string][]formversion.FormVersion{},
	}
}

func (r *countingResolver) count(name string) {
	r.mu.Lock()
	r.calls[name]++
	r.mu.Unlock()
}

func (r *countingResolver) Calls(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *countingResolver) GetActiveMergedForm(_ context.Context, ehc string) (formversion.MergedForm, error) {
	r.count("active")
	if r.err != nil {
		return formversion.MergedForm{}, r.err
	}
	form, ok := r.active[ehc]
	if !ok {
		return formversion.MergedForm{}, formversion.TemplateNotFound(ehc, nil)
	}
	return form, nil
}

func (r *countingResolver) GetPrivateMergedForm(_ context.Context, ehc, code string) (formversion.MergedForm, error) {
	r.count("private")
	form, ok := r.private[ehc+"/"+code]
	if !ok {
		return formversion.MergedForm{}, formversion.TemplateNotFound(ehc, map[string]any{"private_code": code})
	}
	return form, nil
}

func (r *countingResolver) GetAllFormVersions(_ context.Context, ehc string) ([]formversion.FormVersion, error) {
	r.count("versions")
	return r.versions[ehc], nil
}

func (r *countingResolver) GetMergedForm(_ context.Context, ehc, exa formversion.NameAndVersion) (formversion.MergedForm, error) {
	r.count("merged")
	for _, form := range r.active {
		if form.EHC == ehc && form.EXA == exa {
			return form, nil
		}
	}
	return formversion.MergedForm{}, formversion.TemplateNotFound(ehc.Name, nil)
}

func (r *countingResolver) GetMergedFormPages(_ context.Context, _ formversion.PageQuery) ([]formversion.MergedFormPage, error) {
	r.count("pages")
	if r.err != nil {
		return nil, r.err
	}
	out := make([]formversion.MergedFormPage, len(r.pages))
	for i, p := range r.pages {
		out[i] = p.Clone()
	}
	return out, nil
}

// recordingStore wraps a MemoryStore, counts DeletePrefix batches and can
// be made to fail.
type recordingStore struct {
	*MemoryStore
	mu        sync.Mutex
	batches   [][]string
	failGet   bool
	failSet   bool
	failWrite bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore(0)}
}

var errStoreDown = errors.New("store down")

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGet {
		return nil, false, errStoreDown
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet {
		return errStoreDown
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *recordingStore) DeletePrefix(ctx context.Context, prefixes ...string) error {
	s.mu.Lock()
	s.batches = append(s.batches, append([]string(nil), prefixes...))
	s.mu.Unlock()
	if s.failWrite {
		return errStoreDown
	}
	return s.MemoryStore.DeletePrefix(ctx, prefixes...)
}

type fakeLookup struct {
	links    map[string][]string
	exa      map[string]string
	withdraw map[string]bool
	err      error
}

func (l *fakeLookup) GetExaNumber(_ context.Context, ehc string) (string, error) {
	return l.exa[ehc], l.err
}

func (l *fakeLookup) IsWithdrawn(_ context.Context, ehc string) (bool, error) {
	return l.withdraw[ehc], l.err
}

func (l *fakeLookup) FindEhcNumbersByExa(_ context.Context, exa string) ([]string, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.links[exa], nil
}

// fakeRedis is an in-process stand-in for a redis client.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	dels int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (r *fakeRedis) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[key], nil
}

func (r *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value.(string)
	r.ttls[key] = expiration
	return nil
}

func (r *fakeRedis) Del(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dels++
	for _, k := range keys {
		delete(r.data, k)
	}
	return nil
}

func (r *fakeRedis) Keys(_ context.Context, pattern string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.data {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
