package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/totsar/lostfound/internal/domain"
)

// Filter narrows a catalogue listing. Zero value matches everything.
type Filter struct {
	// Search matches case-insensitively against title, description, location.
	Search string
	// Tag matches one tag name case-insensitively.
	Tag string
}

// Service handles catalogue item CRUD.
type Service struct {
	repo Repository
}

// New creates a catalogue service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new item.
func (s *Service) Create(
	ctx context.Context, title, description, location string, tags []string,
) (domain.Item, error) {
	it, err := domain.NewItem(title, description, location, tags)
	if err != nil {
		return domain.Item{}, err
	}

	stored, err := s.repo.Create(ctx, it)
	if err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	return stored, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id int64) (domain.Item, error) {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// List returns items matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.Item, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	filtered := items[:0]
	for _, it := range items {
		if matches(&it, f) {
			filtered = append(filtered, it)
		}
	}

	// ListAll yields creation order; the API serves newest first.
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered, nil
}

// Update replaces an item's content. The stored embedding is invalidated
// by the repository write.
func (s *Service) Update(
	ctx context.Context, id int64, title, description, location string, tags []string,
) (domain.Item, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}

	next, err := current.WithContent(title, description, location, tags)
	if err != nil {
		return domain.Item{}, err
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}
	return next, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func matches(it *domain.Item, f Filter) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(it.Title() + "\n" + it.Description() + "\n" + it.Location())
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if f.Tag != "" {
		found := false
		for _, t := range it.Tags() {
			if strings.EqualFold(t, f.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
