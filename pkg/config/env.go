package config

import (
	"fmt"
	"os"
	"regexp"
)

// envRef matches ${VAR} and ${VAR:default}. The default may be empty
// (${VAR:}), which explicitly distinguishes "unset, no default" from
// "unset, default is the empty string."
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:([^}]*))?\}`)

// InterpolateEnv expands ${VAR} and ${VAR:default} references in raw
// config bytes before YAML parsing. A ${VAR} with no default is fatal if
// VAR is unset, per spec.md §6.
func InterpolateEnv(raw []byte) ([]byte, error) {
	var firstErr error
	out := envRef.ReplaceAllFunc(raw, func(match []byte) []byte {
		if firstErr != nil {
			return match
		}
		groups := envRef.FindSubmatch(match)
		name := string(groups[1])
		hasDefault := len(groups[2]) > 0
		def := string(groups[3])

		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if hasDefault {
			return []byte(def)
		}
		firstErr = fmt.Errorf("config: required environment variable %q is not set", name)
		return match
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
