// Package config snapshots viper settings into a typed struct.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// OverwriteFiles controls whether existing output files should be overwritten.
var OverwriteFiles bool

// Settings is the resolved configuration for one run.
type Settings struct {
	ListingURL  string
	FallbackURL string
	LocalPaths  []string
	ListingTTL  time.Duration

	ImageRoot  string
	ImageDir   string
	ThumbWidth int

	VerifyCovers bool
	ProbeTTL     time.Duration
	ProbeRate    int
	CacheDB      string

	HTTPTimeout time.Duration
	HTTPProxy   string

	ServerAddr string
	PageTitle  string
}

// SetDefaults registers default values for every key.
func SetDefaults() {
	viper.SetDefault("listing.url", "")
	viper.SetDefault("listing.fallback_url", "")
	viper.SetDefault("listing.local_paths", []string{"listagem.xlsx", "listagem.csv"})
	viper.SetDefault("listing.ttl", "5m")

	viper.SetDefault("images.root", ".")
	viper.SetDefault("images.dir", "img")
	viper.SetDefault("images.thumb_width", 360)

	viper.SetDefault("covers.verify", false)
	viper.SetDefault("covers.probe_ttl", "24h")
	viper.SetDefault("covers.probe_rate", 4)
	viper.SetDefault("cache.dbfile", "./cache.db")

	viper.SetDefault("http.timeout", "20s")
	viper.SetDefault("http.proxy", "")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("page.title", "E-books")
	viper.SetDefault("OverwriteFiles", false)
}

// InitConfig registers defaults and refreshes the package globals.
func InitConfig() {
	SetDefaults()
	OverwriteFiles = viper.GetBool("OverwriteFiles")
}


// Load reads the current viper state.
func Load() Settings {
	return Settings{
		ListingURL:  viper.GetString("listing.url"),
		FallbackURL: viper.GetString("listing.fallback_url"),
		LocalPaths:  viper.GetStringSlice("listing.local_paths"),
		ListingTTL:  viper.GetDuration("listing.ttl"),

		ImageRoot:  viper.GetString("images.root"),
		ImageDir:   viper.GetString("images.dir"),
		ThumbWidth: viper.GetInt("images.thumb_width"),

		VerifyCovers: viper.GetBool("covers.verify"),
		ProbeTTL:     viper.GetDuration("covers.probe_ttl"),
		ProbeRate:    viper.GetInt("covers.probe_rate"),
		CacheDB:      viper.GetString("cache.dbfile"),

		HTTPTimeout: viper.GetDuration("http.timeout"),
		HTTPProxy:   viper.GetString("http.proxy"),

		ServerAddr: viper.GetString("server.addr"),
		PageTitle:  viper.GetString("page.title"),
	}
}
