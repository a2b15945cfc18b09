package domain

import "errors"

var (
	// ErrItemNotFound signals a missing catalogue item.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidItem signals an item that fails validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrAssistantNotConfigured signals that no AI provider is configured.
	// Its text is the message surfaced to callers; transient provider
	// failures must never map to it.
	ErrAssistantNotConfigured = errors.New("OPENAI_API_KEY is not configured.")
	// ErrProviderUnavailable signals a failed embedding or reasoning call.
	ErrProviderUnavailable = errors.New("ai provider unavailable")
)
