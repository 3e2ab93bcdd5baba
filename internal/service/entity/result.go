package entity

import "github.com/qualitrack/qc-api/internal/model"

// Kind classifies a failed result so the request layer can pick a status
// code without parsing error strings. It never reaches the wire.
type Kind int

const (
	KindOK Kind = iota
	KindInvalid
	KindNotFound
	KindConflict
	KindInternal
)

// Result is the uniform envelope every business operation returns. Expected
// failures (bad input, not found, duplicate code, storage fault) travel in
// the envelope; nothing in this layer panics for them.
type Result[V any] struct {
	Success bool   `json:"success"`
	Data    *V     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"-"`
}

func ok[V any](data *V) Result[V] {
	return Result[V]{Success: true, Data: data}
}

func fail[V any](kind Kind, msg string) Result[V] {
	return Result[V]{Success: false, Error: msg, Kind: kind}
}

// ListResult is the envelope for page-shaped operations.
type ListResult[V any] struct {
	Success    bool             `json:"success"`
	Items      []V              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
	Error      string           `json:"error,omitempty"`
	Kind       Kind             `json:"-"`
}

func okList[V any](page *model.PaginatedResult[V]) ListResult[V] {
	return ListResult[V]{Success: true, Items: page.Items, Pagination: page.Pagination}
}

func failList[V any](kind Kind, msg string) ListResult[V] {
	return ListResult[V]{Success: false, Error: msg, Kind: kind}
}

// ValidationResult is the outcome of Validate: a flag plus human-readable
// rule violations. Validation itself never fails.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// AvailabilityResult reports whether a code is free to use. The check
// succeeding is independent of the code being available.
type AvailabilityResult struct {
	Success   bool     `json:"success"`
	Available bool     `json:"available"`
	Errors    []string `json:"errors,omitempty"`
}
