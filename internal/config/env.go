package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
)

// Environment variables that override the build switches of the config file.
const (
	EnvBuildDrafts  = "PUBGATE_BUILD_DRAFTS"
	EnvBuildFuture  = "PUBGATE_BUILD_FUTURE"
	EnvBuildExpired = "PUBGATE_BUILD_EXPIRED"
)

// LoadEnvFiles loads .env and .env.local from each directory that has them.
// Variables already present in the process environment are kept. It returns
// the files that were loaded.
func LoadEnvFiles(dirs ...string) ([]string, error) {
	var loaded []string
	seen := map[string]bool{}
	for _, dir := range dirs {
		for _, name := range []string{".env", ".env.local"} {
			p := filepath.Join(dir, name)
			abs, err := filepath.Abs(p)
			if err != nil || seen[abs] {
				continue
			}
			seen[abs] = true
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := godotenv.Load(p); err != nil {
				return loaded, errors.ConfigError("failed to load environment file").
					WithCause(err).
					WithContext("path", p).
					Build()
			}
			loaded = append(loaded, p)
		}
	}
	return loaded, nil
}

func applyEnv(site *Site, lookup func(string) (string, bool)) error {
	overrides := []struct {
		name string
		dst  *bool
	}{
		{EnvBuildDrafts, &site.Build.BuildDrafts},
		{EnvBuildFuture, &site.Build.BuildFuture},
		{EnvBuildExpired, &site.Build.BuildExpired},
	}
	for _, o := range overrides {
		v, ok := lookup(o.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.ConfigError("invalid boolean environment variable").
				WithCause(err).
				WithContext("variable", o.name).
				WithContext("value", v).
				Build()
		}
		*o.dst = b
	}
	return nil
}
