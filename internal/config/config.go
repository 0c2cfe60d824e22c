// Package config loads the site configuration that drives publication: where
// content lives, how zone-less dates are read, and the buildDrafts,
// buildFuture and buildExpired switches.
//
// Files are looked up the way Hugo does (hugo.* before config.*) and may be
// YAML, TOML or JSON. Keys are case-insensitive. Keys pubgate does not use are
// ignored.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/publish"
)

const (
	DefaultContentDir = "content"
	DefaultPublishDir = "public"
	DefaultTitle      = "My Blog"
)

// SiteConfigNames lists config file names in lookup order.
var SiteConfigNames = []string{
	"hugo.yaml", "hugo.yml", "hugo.toml", "hugo.json",
	"config.yaml", "config.yml", "config.toml", "config.json",
}

// Site is the resolved site configuration.
type Site struct {
	Title      string
	BaseURL    string
	ContentDir string // absolute, or relative to the working directory
	PublishDir string
	TimeZone   string
	Location   *time.Location
	Build      publish.BuildConfig

	Dir  string // site root
	File string // config file used, empty when none was found
}

// Loader reads a Site. The zero value reads from the working directory and
// ignores the environment.
type Loader struct {
	Dir       string
	File      string // explicit config file; overrides lookup
	LookupEnv func(string) (string, bool)
}

// Load reads the site in dir, honoring an explicit file and PUBGATE_* variables.
func Load(dir, file string) (*Site, error) {
	return Loader{Dir: dir, File: file, LookupEnv: os.LookupEnv}.Load()
}

// Load resolves the config file, decodes it and applies environment overrides.
func (l Loader) Load() (*Site, error) {
	dir := l.Dir
	if dir == "" {
		dir = "."
	}

	file, err := l.resolveFile(dir)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	if file != "" {
		if raw, err = readFile(file); err != nil {
			return nil, err
		}
	}

	site, err := fromMap(raw)
	if err != nil {
		return nil, err
	}
	site.Dir = dir
	site.File = file
	if !filepath.IsAbs(site.ContentDir) {
		site.ContentDir = filepath.Join(dir, site.ContentDir)
	}
	if !filepath.IsAbs(site.PublishDir) {
		site.PublishDir = filepath.Join(dir, site.PublishDir)
	}

	if l.LookupEnv != nil {
		if err := applyEnv(site, l.LookupEnv); err != nil {
			return nil, err
		}
	}

	if site.Location, err = loadLocation(site.TimeZone); err != nil {
		return nil, err
	}
	return site, nil
}

// ConfigPath returns the configuration file Load reads. An explicit File is
// returned even when it does not exist yet. Without one, and with no site
// config present, it returns "".
func (l Loader) ConfigPath() string {
	dir := l.Dir
	if dir == "" {
		dir = "."
	}
	file, err := l.resolveFile(dir)
	if err != nil {
		return l.File
	}
	return file
}

func (l Loader) resolveFile(dir string) (string, error) {
	if l.File != "" {
		if _, err := os.Stat(l.File); err != nil {
			return "", errors.ConfigError("configuration file not found").
				WithCategory(errors.CategoryNotFound).
				WithCause(err).
				WithContext("path", l.File).
				Build()
		}
		return l.File, nil
	}
	for _, name := range SiteConfigNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError("failed to read configuration file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = fmt.Errorf("unsupported configuration format %q", ext)
	}
	if err != nil {
		return nil, errors.ConfigError("failed to parse configuration file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func fromMap(raw map[string]any) (*Site, error) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[strings.ToLower(k)] = v
	}

	site := &Site{
		Title:      DefaultTitle,
		ContentDir: DefaultContentDir,
		PublishDir: DefaultPublishDir,
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"title", &site.Title},
		{"baseurl", &site.BaseURL},
		{"contentdir", &site.ContentDir},
		{"publishdir", &site.PublishDir},
		{"timezone", &site.TimeZone},
	}
	for _, s := range strs {
		v, ok := fields[s.key]
		if !ok || v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, invalidValue(s.key, fmt.Errorf("expected string, got %T", v))
		}
		if str = strings.TrimSpace(str); str != "" {
			*s.dst = str
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"builddrafts", &site.Build.BuildDrafts},
		{"buildfuture", &site.Build.BuildFuture},
		{"buildexpired", &site.Build.BuildExpired},
	}
	for _, b := range bools {
		v, ok := fields[b.key]
		if !ok || v == nil {
			continue
		}
		parsed, err := toBool(v)
		if err != nil {
			return nil, invalidValue(b.key, err)
		}
		*b.dst = parsed
	}
	return site, nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.ConfigError("invalid timeZone").
			WithCause(err).
			WithContext("value", name).
			Build()
	}
	return loc, nil
}

func invalidValue(key string, cause error) error {
	return errors.ConfigError("invalid configuration value").
		WithCause(cause).
		WithContext("key", key).
		Build()
}
