package publish

// BuildConfig holds the site-wide switches that relax the gates. The zero
// value excludes drafts, future and expired documents.
type BuildConfig struct {
	BuildDrafts  bool `yaml:"buildDrafts" toml:"buildDrafts" json:"buildDrafts"`
	BuildFuture  bool `yaml:"buildFuture" toml:"buildFuture" json:"buildFuture"`
	BuildExpired bool `yaml:"buildExpired" toml:"buildExpired" json:"buildExpired"`
}

// Merge returns a config where each switch is on if it is on in either.
func (c BuildConfig) Merge(other BuildConfig) BuildConfig {
	return BuildConfig{
		BuildDrafts:  c.BuildDrafts || other.BuildDrafts,
		BuildFuture:  c.BuildFuture || other.BuildFuture,
		BuildExpired: c.BuildExpired || other.BuildExpired,
	}
}
