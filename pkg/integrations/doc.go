// Package integrations provides the shared HTTP client for package registry
// APIs.
//
// # Overview
//
// Registry-specific clients live in subpackages; stackdoc currently talks to
// one registry:
//
//   - [crates]: Rust crates.io (version metadata and .crate downloads)
//
// # Shared Infrastructure
//
// The [Client] type provides:
//   - HTTP requests with default headers and retry on transient failures
//     (network errors, 429 and 5xx responses) via [cache.RetryWithBackoff]
//   - JSON response caching in any [cache.Cache] backend
//   - Streaming downloads with a longer timeout
//   - Request and response events through the observability HTTP hooks
//
// [crates]: github.com/matzehuels/stackdoc/pkg/integrations/crates
// [cache.Cache]: github.com/matzehuels/stackdoc/pkg/cache.Cache
// [cache.RetryWithBackoff]: github.com/matzehuels/stackdoc/pkg/cache.RetryWithBackoff
package integrations
