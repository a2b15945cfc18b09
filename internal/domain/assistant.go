package domain

// AssistantResult is the transient outcome of one assistant query.
type AssistantResult struct {
	Message          string
	PickedItemIDs    []int64
	CandidateItemIDs []int64
}

// MaxPickedItems caps how many items the reasoning selector may pick.
const MaxPickedItems = 5

// EmbeddingUpdate carries one computed vector back to the item store.
type EmbeddingUpdate struct {
	ItemID    int64
	Embedding []float32
}
