package domain

import "errors"

var (
	ErrInvalidStyle    = errors.New("invalid deck style")
	ErrInvalidMode     = errors.New("invalid game mode")
	ErrInvalidCount    = errors.New("card count out of range for deck")
	ErrEmptyMessages   = errors.New("messages must not be empty")
	ErrExhaustedPool   = errors.New("every card in the deck is excluded")
	ErrUpstreamLLM     = errors.New("upstream LLM failure")
	ErrImageGeneration = errors.New("image generation failed")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrUnknownProvider = errors.New("unknown provider")
)
