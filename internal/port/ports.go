// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
)

// DocumentStore persists whole-object JSON documents by string key.
// The ledger stores four records per account: profile, month history,
// account and last-sync timestamp.
type DocumentStore interface {
	// Load unmarshals the document at key into out. The boolean is false
	// when the key is absent.
	Load(ctx context.Context, key string, out any) (bool, error)
	// Save marshals doc and writes it at key, replacing any previous value.
	Save(ctx context.Context, key string, doc any) error
	// Delete removes the document at key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// AdviceGenerator produces structured coaching advice from ledger context.
// Implementations talk to a generative-text service; responses are
// schema-validated before being returned.
type AdviceGenerator interface {
	MonthlyAnalysis(ctx context.Context, req *domain.AnalysisRequest) (*domain.MonthlyAnalysis, error)
	SavingsPlan(ctx context.Context, req *domain.SavingsPlanRequest) (*domain.SavingsPlan, error)
	GiftSuggestions(ctx context.Context, req *domain.GiftRequest) ([]domain.GiftSuggestion, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
