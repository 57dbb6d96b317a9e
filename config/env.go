// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/centarr/centarr/config/key"
)

// Env represents a Source where its underlying values
// are extracted from environment variables.
type Env struct {
	prefix  string
	environ func() []string
}

// FromEnv returns a Source which applies environment variables carrying
// the given prefix. The prefix is stripped and the remaining name is
// lowercased and split on "_" into a nested key chain, e.g. with the
// prefix "CENTARR_" the variable CENTARR_HTTP_PORT sets http.port.
// Struct tag matching is case insensitive so compound config keys like
// readHeaderTimeout are addressed as READHEADERTIMEOUT.
func FromEnv(prefix string) Env {
	return Env{
		prefix:  prefix,
		environ: os.Environ,
	}
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		name, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, ok = strings.CutPrefix(name, src.prefix)
		if !ok || name == "" {
			continue
		}

		var chain key.Chain
		for _, part := range strings.Split(strings.ToLower(name), "_") {
			if part == "" {
				continue
			}
			chain = append(chain, key.Name(part))
		}
		if len(chain) == 0 {
			continue
		}

		err := store.Set(chain, v)
		if err != nil {
			return err
		}
	}
	return nil
}
