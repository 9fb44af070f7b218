// Package audit provides audit field enrichment for documents.
package audit

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/domain/auth"
)

// StampCreated sets CreatedBy and UpdatedBy from the context principal.
// Use when a document is first persisted. No-op without a principal,
// which keeps seed scripts and tests working.
func StampCreated(ctx context.Context, createdBy, updatedBy *string) {
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		*createdBy = p.Username
		*updatedBy = p.Username
	}
}

// StampUpdated sets only UpdatedBy from the context principal.
// Use on every subsequent mutation.
func StampUpdated(ctx context.Context, updatedBy *string) {
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		*updatedBy = p.Username
	}
}
