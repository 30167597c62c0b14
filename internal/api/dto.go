package api

import (
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/promptservice"
)

// AddPromptRequest is the request body for storing a prompt.
type AddPromptRequest struct {
	Name    string `json:"name" example:"code-review"`
	Content string `json:"content" example:"---\ndescription: x\n---\nReview the diff."`
}

// AddPromptResponse reports the storage filename for a stored prompt.
type AddPromptResponse struct {
	Filename string `json:"filename" example:"code-review.md"`
}

// PromptDetail is the full prompt response type (aliased from the domain layer).
type PromptDetail = promptservice.PromptDetail

// PromptListItem is a lightweight item in a list response (aliased from the domain layer).
type PromptListItem = promptservice.PromptListItem

// PromptListResponse wraps prompt listings.
type PromptListResponse struct {
	Prompts []PromptListItem `json:"prompts"`
	Total   int              `json:"total" example:"42"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}
