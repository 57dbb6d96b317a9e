// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package centarr provides the application harness for the centarr service.
//
// centarr is a small HTTP gateway in front of a Sonarr instance. It proxies
// show and episode metadata and streams episode files straight from disk
// with HTTP range support.
package centarr
