// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides configuration management for centarr.
//
// Config is read from one or more [Source]s which are merged, in order,
// into a single key value structure before being unmarshalled into a
// user defined struct. Sources applied later override earlier sources
// which allows, for example, a user provided YAML file to override the
// compiled in defaults.
package config
