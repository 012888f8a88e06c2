package refrag

import (
	"context"
	"errors"
	"net"

	"github.com/lib/pq"
	"github.com/siherrmann/refrag/core/answer"
	"github.com/siherrmann/refrag/core/retrieval"
)

// ErrorCategory tells a caller which kind of dependency failed.
type ErrorCategory string

const (
	CategoryNetwork ErrorCategory = "network"
	CategoryStore   ErrorCategory = "store"
	CategoryModel   ErrorCategory = "model"
	CategoryUnknown ErrorCategory = "unknown"
)

var categoryMessages = map[ErrorCategory]string{
	CategoryNetwork: "ネットワークエラーが発生しました。インターネット接続を確認してください。",
	CategoryStore:   "データベース接続エラーが発生しました。しばらく待ってから再度お試しください。",
	CategoryModel:   "AI APIエラーが発生しました。しばらく待ってから再度お試しください。",
	CategoryUnknown: "エラーが発生しました。もう一度お試しください。エラーが続く場合は管理者にお問い合わせください。",
}

// Message returns the user facing text of the category.
func (c ErrorCategory) Message() string {
	if m, ok := categoryMessages[c]; ok {
		return m
	}
	return categoryMessages[CategoryUnknown]
}

// Categorize maps an error returned by Refrag to the failing dependency.
// Database errors are store errors, transport errors and timeouts are
// network errors, and embedding or synthesis failures are model errors.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return CategoryStore
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	var re *retrieval.Error
	if errors.As(err, &re) {
		switch re.Kind {
		case retrieval.KindVectorStore, retrieval.KindKeywordStore:
			return CategoryStore
		case retrieval.KindEmbedding:
			return CategoryModel
		}
	}

	if errors.Is(err, answer.ErrSynthesisFailed) {
		return CategoryModel
	}

	return CategoryUnknown
}
