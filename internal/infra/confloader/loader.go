package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Source adds one configuration layer to k.
type Source func(k *koanf.Koanf) error

// Load applies sources in order, later ones overriding earlier ones, and
// unmarshals the result into target using koanf tags. Fields no source
// mentions keep the value target already holds, so defaults go in target.
func Load(target any, sources ...Source) error {
	k := koanf.New(".")
	for _, src := range sources {
		if err := src(k); err != nil {
			return err
		}
	}
	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// File reads a YAML file. An empty path adds nothing.
func File(path string) Source {
	return func(k *koanf.Koanf) error {
		if path == "" {
			return nil
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", path, err)
		}
		return nil
	}
}

// OptionalFile is File, except that a missing file adds nothing.
func OptionalFile(path string) Source {
	return func(k *koanf.Koanf) error {
		if path == "" {
			return nil
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return File(path)(k)
	}
}

// Env reads variables starting with prefix. A single underscore separates
// path segments and a double underscore is a literal underscore:
//
//	TAGURL_SERVER_HTTP_ADDR        -> server.http.addr
//	TAGURL_SERVER_HTTP_RATE__LIMIT -> server.http.rate_limit
func Env(prefix string) Source {
	return func(k *koanf.Koanf) error {
		p := env.Provider(prefix, ".", func(s string) string {
			return EnvToKey(prefix, s)
		})
		if err := k.Load(p, nil); err != nil {
			return fmt.Errorf("load env %s*: %w", prefix, err)
		}
		return nil
	}
}

// Map applies values keyed by dotted path, typically from flags.
func Map(values map[string]any) Source {
	return func(k *koanf.Koanf) error {
		if len(values) == 0 {
			return nil
		}
		return k.Load(mapProvider(values), nil)
	}
}

// EnvToKey converts an environment variable name to a config path.
func EnvToKey(prefix, name string) string {
	parts := strings.Split(strings.ToLower(strings.TrimPrefix(name, prefix)), "__")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "_", ".")
	}
	return strings.Join(parts, "_")
}
