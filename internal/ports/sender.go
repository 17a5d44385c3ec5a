package ports

import (
	"context"

	"github.com/bft-labs/logship/internal/domain"
)

// BatchSender delivers one batch to the ingestion endpoint.
// Implementations handle payload construction, compression, transport and
// status interpretation. A send is terminal either way: the caller discards
// the batch on error, it never retries or requeues.
type BatchSender interface {
	// Send transmits the batch and returns the size of the compressed
	// payload that was written. Returns a nil error only when the endpoint
	// accepted the payload.
	Send(ctx context.Context, batch *domain.Batch) (int, error)
}
