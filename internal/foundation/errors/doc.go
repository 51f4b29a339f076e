// Package errors provides foundational, type-safe error primitives used across stagerunner.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, fetch, install, test, lint, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff)
//   - ClassifiedError: Structured error with category, severity, context and an optional exit code
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for exit code mapping and presentation
//
// Example usage:
//
//	err := errors.FetchError("clone failed").
//		WithContext("url", repoURL).
//		WithExitCode(128).
//		WithCause(originalErr).
//		Build()
package errors
