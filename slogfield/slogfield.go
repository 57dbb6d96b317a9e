// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield provides helpers for constructing slog.Attrs.
package slogfield

import (
	"log/slog"
	"time"
)

// Any returns an slog.Attr for the supplied value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for an error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an slog.Attr for an int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Int64 returns an slog.Attr for an int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// Uint returns an slog.Attr for a uint.
func Uint(key string, n uint) slog.Attr {
	return slog.Uint64(key, uint64(n))
}
