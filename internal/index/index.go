package index

// PromptIndex defines the interface for prompt search-index operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type PromptIndex interface {
	UpsertPrompt(p PromptRow, body string) error
	DeletePrompt(name string) error
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies PromptIndex at compile time.
var _ PromptIndex = (*DB)(nil)
