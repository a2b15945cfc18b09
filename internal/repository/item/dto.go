package item

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"github.com/totsar/lostfound/internal/domain"
)

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldLocation    = "location"
	fieldTags        = "tags"
	fieldCreatedAt   = "created_at"
	fieldVector      = "__vector"
)

// buildHashFields converts an Item into a flat map[string]string for HSET.
// An absent embedding is stored as an empty vector field so an update
// overwrites any stale stored vector.
func buildHashFields(it *domain.Item) map[string]string {
	tags, _ := json.Marshal(it.Tags())
	return map[string]string{
		fieldTitle:       it.Title(),
		fieldDescription: it.Description(),
		fieldLocation:    it.Location(),
		fieldTags:        string(tags),
		fieldCreatedAt:   strconv.FormatInt(it.CreatedAt(), 10),
		fieldVector:      vectorToBytes(it.Embedding()),
	}
}

// parseHashFields converts a flat hash map back into an Item.
func parseHashFields(id int64, m map[string]string) domain.Item {
	var tags []string
	if raw := m[fieldTags]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &tags)
	}
	createdAt, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64)

	return domain.ReconstructItem(
		id,
		m[fieldTitle],
		m[fieldDescription],
		m[fieldLocation],
		tags,
		bytesToVector(m[fieldVector]),
		createdAt,
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
// Empty or malformed input means "no embedding".
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
