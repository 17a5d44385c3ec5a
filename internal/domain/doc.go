// Package domain contains the core domain entities and value objects for
// logship.
//
// This package represents the innermost layer of the architecture. It has no
// dependencies on infrastructure concerns (HTTP, logging, compression) and
// contains only the data the pipeline moves around.
//
// # Entities
//
//   - [Record]: a single log event, an insertion-ordered field mapping
//   - [Batch]: an ordered group of records captured by one drain
//
// Records are owned by the producer until submitted, by the buffer until
// drained, and by exactly one worker afterwards. A Batch is never shared
// between workers.
package domain
