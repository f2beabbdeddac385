// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/z5labs/wirehttp/config/key"
)

// EnvKeySeparator separates nested key names in an environment
// variable name, e.g. WIREHTTP_ACCESSLOG__PATH sets accesslog.path
// for the prefix "WIREHTTP_".
const EnvKeySeparator = "__"

// Env represents a Source where its underlying values
// are extracted from environment variables.
type Env struct {
	prefix  string
	environ func() []string
}

// FromEnv returns a Source which will apply its config from the
// environment variables of the current process whose names start
// with prefix. The prefix is removed and the rest of the name is
// lower cased and split on [EnvKeySeparator].
func FromEnv(prefix string) Env {
	return Env{
		prefix:  prefix,
		environ: os.Environ,
	}
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(k, src.prefix)
		if !ok {
			continue
		}
		chain := key.Split(strings.ToLower(name), EnvKeySeparator)
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
