package item

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/totsar/lostfound/internal/db"
	"github.com/totsar/lostfound/internal/domain"
)

// store is the consumer interface for the item repository (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// Repo persists catalogue items as Redis hashes under
// <prefix>item:<id>, with IDs allocated from <prefix>next_item_id.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates an item repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix, now: time.Now}
}

func (r *Repo) itemKey(id int64) string {
	return r.prefix + "item:" + strconv.FormatInt(id, 10)
}

func (r *Repo) seqKey() string {
	return r.prefix + "next_item_id"
}

// Create assigns an ID and stores the item. Returns the stored item.
func (r *Repo) Create(ctx context.Context, it domain.Item) (domain.Item, error) {
	id, err := r.store.Incr(ctx, r.seqKey())
	if err != nil {
		return domain.Item{}, fmt.Errorf("allocate item id: %w", err)
	}

	stored := it.WithID(id)
	stored = stored.WithCreatedAt(r.now().UnixMilli())

	if err := r.store.HSet(ctx, r.itemKey(id), buildHashFields(&stored)); err != nil {
		return domain.Item{}, fmt.Errorf("store item %d: %w", id, err)
	}
	return stored, nil
}

// Get returns an item by ID.
func (r *Repo) Get(ctx context.Context, id int64) (domain.Item, error) {
	m, err := r.store.HGetAll(ctx, r.itemKey(id))
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	if len(m) == 0 {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return parseHashFields(id, m), nil
}

// ListAll returns every catalogued item in creation (ID) order.
func (r *Repo) ListAll(ctx context.Context) ([]domain.Item, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"item:*")
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}

	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		raw := strings.TrimPrefix(key, r.prefix+"item:")
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) == 0 {
		return nil, nil
	}

	fetchKeys := make([]string, len(ids))
	for i, id := range ids {
		fetchKeys[i] = r.itemKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, fetchKeys)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	items := make([]domain.Item, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			// Deleted between SCAN and HGETALL.
			continue
		}
		items = append(items, parseHashFields(ids[i], m))
	}
	return items, nil
}

// Update overwrites an item's content. The hash write includes an empty
// vector field, so any previously stored embedding is invalidated.
func (r *Repo) Update(ctx context.Context, it domain.Item) error {
	key := r.itemKey(it.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check item %d: %w", it.ID(), err)
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	if err := r.store.HSet(ctx, key, buildHashFields(&it)); err != nil {
		return fmt.Errorf("update item %d: %w", it.ID(), err)
	}
	return nil
}

// Delete removes an item.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	key := r.itemKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check item %d: %w", id, err)
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// UpdateEmbeddings bulk-persists computed vectors in one pipelined write.
// Each item's vector field is written atomically; no partial vectors.
func (r *Repo) UpdateEmbeddings(ctx context.Context, updates []domain.EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	writes := make([]db.HashSetItem, len(updates))
	for i, u := range updates {
		writes[i] = db.HashSetItem{
			Key:    r.itemKey(u.ItemID),
			Fields: map[string]string{fieldVector: vectorToBytes(u.Embedding)},
		}
	}

	if err := r.store.HSetMulti(ctx, writes); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}
	return nil
}
