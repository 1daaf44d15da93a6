// Package crates provides an HTTP client for crates.io.
//
// # Overview
//
// The client covers what the documentation builder needs from the registry:
//
//   - [Client.FetchCrate]: summary metadata, used to pick the latest version
//   - [Client.FetchVersion]: per-version metadata including the archive
//     SHA-256 checksum and yanked flag
//   - [Client.Download]: streams a .crate archive from static.crates.io
//
// # Usage
//
//	client := crates.NewClient(cache.NewNullCache(), 24*time.Hour)
//
//	v, err := client.FetchVersion(ctx, "serde", "1.0.197", false)
//	if err != nil {
//	    return err
//	}
//	_, err = client.Download(ctx, "serde", "1.0.197", f)
//
// # Caching
//
// JSON responses are cached in the backend passed to [NewClient]. Archives
// are cached on disk by the fetch package instead.
//
// # User-Agent
//
// The client includes a User-Agent header as requested by crates.io policy.
package crates
