// Package services defines shared utilities consumed by the ancillary
// acquisition code and the processing pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp years, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell
//     configuration problems apart from external tool and transient failures.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the commands.
package services
