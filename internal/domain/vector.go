package domain

import (
	"math"
	"sort"
)

// NotComparable is the sentinel similarity for degenerate vector pairs
// (empty, mismatched length, zero magnitude). It sorts below any real
// cosine similarity.
const NotComparable = -1.0

// MaxCandidates bounds the shortlist sent to the reasoning model.
const MaxCandidates = 10

// CosineSimilarity returns the cosine similarity of two vectors, or
// NotComparable when the pair cannot be meaningfully compared.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return NotComparable
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return NotComparable
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Candidate is an item shortlisted for the reasoning model, with its
// similarity score. Ephemeral: lives only within one query.
type Candidate struct {
	Item  Item
	Score float64
}

// RankCandidates scores every embedded item against the query vector and
// returns the top MaxCandidates by descending similarity. Items without an
// embedding are skipped, not scored as zero. Ties keep input order.
func RankCandidates(query []float32, items []Item) []Candidate {
	scored := make([]Candidate, 0, len(items))
	for _, it := range items {
		if !it.HasEmbedding() {
			continue
		}
		scored = append(scored, Candidate{Item: it, Score: CosineSimilarity(query, it.Embedding())})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > MaxCandidates {
		scored = scored[:MaxCandidates]
	}
	return scored
}
