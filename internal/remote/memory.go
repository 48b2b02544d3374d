package remote

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Store. It backs the self-hosted cloud server and
// the test suites. Documents are deep-copied on the way in and out so
// callers never alias internal state.
type Memory struct {
	mu      sync.Mutex
	users   map[string]*userSpace
	public  map[string]map[string]any
	commits int
}

type userSpace struct {
	doc         map[string]any
	collections map[string]map[string]map[string]any
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*userSpace),
		public: make(map[string]map[string]any),
	}
}

func (m *Memory) space(uid string) *userSpace {
	u, ok := m.users[uid]
	if !ok {
		u = &userSpace{
			doc:         make(map[string]any),
			collections: make(map[string]map[string]map[string]any),
		}
		m.users[uid] = u
	}
	return u
}

func (u *userSpace) collection(name string) map[string]map[string]any {
	c, ok := u.collections[name]
	if !ok {
		c = make(map[string]map[string]any)
		u.collections[name] = c
	}
	return c
}

// GetUser implements Store.
func (m *Memory) GetUser(_ context.Context, uid string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok || len(u.doc) == 0 {
		return nil, nil
	}
	return copyDoc(u.doc), nil
}

// MergeUser implements Store.
func (m *Memory) MergeUser(_ context.Context, uid string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.space(uid)
	for k, v := range copyDoc(fields) {
		u.doc[k] = v
	}
	return nil
}

// ListIDs implements Store.
func (m *Memory) ListIDs(_ context.Context, uid, collection string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, nil
	}
	col := u.collections[collection]
	ids := make([]string, 0, len(col))
	for id := range col {
		ids = append(ids, id)
	}
	return ids, nil
}

// ListDocs implements Store.
func (m *Memory) ListDocs(_ context.Context, uid, collection string) (map[string]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]any)
	u, ok := m.users[uid]
	if !ok {
		return out, nil
	}
	for id, doc := range u.collections[collection] {
		out[id] = copyDoc(doc)
	}
	return out, nil
}

// NewBatch implements Store.
func (m *Memory) NewBatch(uid string) Batch {
	return &memoryBatch{store: m, uid: uid}
}

// SetPublicProfile implements Store.
func (m *Memory) SetPublicProfile(_ context.Context, uid string, doc map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.public[uid] = copyDoc(doc)
	return nil
}

// GetPublicProfile implements Store.
func (m *Memory) GetPublicProfile(_ context.Context, uid string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.public[uid]
	if !ok {
		return nil, nil
	}
	return copyDoc(doc), nil
}

// CommitCount reports how many batch commits have been applied. Used by
// tests asserting chunking behavior.
func (m *Memory) CommitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

type batchOp struct {
	del        bool
	collection string
	id         string
	doc        map[string]any
}

type memoryBatch struct {
	store *Memory
	uid   string
	ops   []batchOp
	done  bool
}

func (b *memoryBatch) Set(collection, id string, doc map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, doc: copyDoc(doc)})
}

func (b *memoryBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{del: true, collection: collection, id: id})
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Commit(_ context.Context) error {
	if b.done {
		return fmt.Errorf("remote: batch already committed")
	}
	if len(b.ops) > BatchLimit {
		return fmt.Errorf("remote: batch of %d operations exceeds limit of %d", len(b.ops), BatchLimit)
	}
	b.done = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	u := b.store.space(b.uid)
	for _, op := range b.ops {
		col := u.collection(op.collection)
		if op.del {
			delete(col, op.id)
		} else {
			col[op.id] = op.doc
		}
	}
	b.store.commits++
	return nil
}

// copyDoc deep-copies a JSON-shaped document.
func copyDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyDoc(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
