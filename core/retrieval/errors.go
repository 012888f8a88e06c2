package retrieval

import (
	"errors"
	"fmt"
)

// ErrRetrievalUnavailable is matched by every error caused by a failing
// embedder or store.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// ErrorKind names the collaborator that failed.
type ErrorKind string

const (
	KindEmbedding    ErrorKind = "embedding"
	KindVectorStore  ErrorKind = "vector_store"
	KindKeywordStore ErrorKind = "keyword_store"
)

// Error is returned when a retrieval dependency fails. It matches
// ErrRetrievalUnavailable with errors.Is and unwraps to the cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s (%s): %v", ErrRetrievalUnavailable, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrRetrievalUnavailable
}

func newError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
