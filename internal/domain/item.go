package domain

import (
	"fmt"
	"strings"
)

const (
	// MaxTitleLen is the maximum item title length in bytes.
	MaxTitleLen = 200
	// MaxDescriptionLen is the maximum item description length in bytes.
	MaxDescriptionLen = 8192
	// MaxLocationLen is the maximum item location length in bytes.
	MaxLocationLen = 255
)

// Item is a catalogued lost-and-found item (immutable value object).
// The embedding is the only field the assistant pipeline mutates; everything
// else is owned by the catalogue CRUD surface.
type Item struct {
	id          int64
	title       string
	description string
	location    string
	tags        []string
	embedding   []float32
	createdAt   int64 // unix millis
}

// NewItem validates and creates an Item. The ID is assigned by storage.
func NewItem(title, description, location string, tags []string) (Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Item{}, fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	if len(title) > MaxTitleLen {
		return Item{}, fmt.Errorf("%w: title too long (max %d)", ErrInvalidItem, MaxTitleLen)
	}
	if len(description) > MaxDescriptionLen {
		return Item{}, fmt.Errorf("%w: description too long (max %d)", ErrInvalidItem, MaxDescriptionLen)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return Item{}, fmt.Errorf("%w: location is required", ErrInvalidItem)
	}
	if len(location) > MaxLocationLen {
		return Item{}, fmt.Errorf("%w: location too long (max %d)", ErrInvalidItem, MaxLocationLen)
	}

	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}

	return Item{
		title:       title,
		description: description,
		location:    location,
		tags:        cleaned,
	}, nil
}

// ReconstructItem creates an Item without validation (storage hydration).
func ReconstructItem(
	id int64, title, description, location string, tags []string,
	embedding []float32, createdAt int64,
) Item {
	return Item{
		id:          id,
		title:       title,
		description: description,
		location:    location,
		tags:        tags,
		embedding:   embedding,
		createdAt:   createdAt,
	}
}

// ID returns the item identifier.
func (i *Item) ID() int64 { return i.id }

// Title returns the item title.
func (i *Item) Title() string { return i.title }

// Description returns the free-text description.
func (i *Item) Description() string { return i.description }

// Location returns the location string.
func (i *Item) Location() string { return i.location }

// Tags returns the tag names.
func (i *Item) Tags() []string { return i.tags }

// Embedding returns the stored embedding vector, nil if not yet computed.
func (i *Item) Embedding() []float32 { return i.embedding }

// CreatedAt returns the creation timestamp in unix milliseconds.
func (i *Item) CreatedAt() int64 { return i.createdAt }

// HasEmbedding reports whether an embedding has been computed.
func (i *Item) HasEmbedding() bool { return len(i.embedding) > 0 }

// WithID returns a copy with the given identifier (storage assignment).
func (i *Item) WithID(id int64) Item {
	c := *i
	c.id = id
	return c
}

// WithCreatedAt returns a copy with the given creation timestamp.
func (i *Item) WithCreatedAt(ts int64) Item {
	c := *i
	c.createdAt = ts
	return c
}

// WithEmbedding returns a copy with the given embedding vector.
func (i *Item) WithEmbedding(vec []float32) Item {
	c := *i
	c.embedding = vec
	return c
}

// WithContent returns a copy carrying new content fields. The embedding is
// dropped: stored vectors are stale once the text they were computed from
// changes.
func (i *Item) WithContent(title, description, location string, tags []string) (Item, error) {
	next, err := NewItem(title, description, location, tags)
	if err != nil {
		return Item{}, err
	}
	next.id = i.id
	next.createdAt = i.createdAt
	return next, nil
}

// EmbeddingText builds the descriptive text the embedding is computed from.
func (i *Item) EmbeddingText() string {
	return fmt.Sprintf(
		"title: %s\ndescription: %s\nlocation: %s\ntags: %s",
		i.title, i.description, i.location, strings.Join(i.tags, ", "),
	)
}
