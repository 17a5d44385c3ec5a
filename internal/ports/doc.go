// Package ports defines the interfaces that connect the application core to
// infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces;
// adapters (internal/adapters) provide the concrete implementations. This
// keeps the dispatch pipeline testable with in-memory fakes and keeps the
// dependency direction pointing inward.
//
// # Port Interfaces
//
//   - [BatchSender]: delivers a drained batch to the ingestion endpoint
//   - [HTTPClient]: HTTP round-trip abstraction for dependency injection
package ports
