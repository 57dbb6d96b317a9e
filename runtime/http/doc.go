// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http provides the HTTP server runtime for centarr.
//
// The Runtime exclusively owns the listening socket. Its lifecycle is:
//
//	NotStarted -> Running -> ShuttingDown -> Stopped
//
// driven by [Runtime.Run], context cancellation (or [Runtime.Shutdown])
// and the release of the socket once in-flight requests have drained.
package http
