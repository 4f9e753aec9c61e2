package commands

import (
	"os"
	"path/filepath"

	"portalcrawl/lib/configutil"
)

type TimeoutConfig struct {
	// Script bounds a single evaluate or query in the browser.
	Script configutil.Duration `json:"script"`
	// Fetch bounds a single document download.
	Fetch configutil.Duration `json:"fetch"`
	// Login bounds the first load of the home page.
	Login configutil.Duration `json:"login"`
}

type Config struct {
	// Site is the preset to crawl, "descriptions" or "outlines".
	Site string `json:"site"`
	// Host replaces the scheme and host of the preset's urls.
	Host string   `json:"host"`
	Tabs []string `json:"tabs"`

	Headless    bool   `json:"headless"`
	ChromePath  string `json:"chrome_path"`
	UserDataDir string `json:"user_data_dir"`

	// Output is a .json, .yaml or .yml file.
	Output string `json:"output"`
	// DB is a sqlite path or a libsql url, runs are also stored there when set.
	DB        string `json:"db"`
	Documents string `json:"documents"`
	// DumpDir receives the http exchanges of document downloads in verbose mode.
	DumpDir string `json:"dump_dir"`

	VerifyRows bool          `json:"verify_rows"`
	Timeouts   TimeoutConfig `json:"timeouts"`
}

func defaultConfig() Config {
	return Config{
		Site:      "descriptions",
		Documents: "DATA",
	}
}

// loadConfig reads the config file, a missing file leaves the defaults. A
// bare file name is looked up from the working directory upwards.
func loadConfig(path string) (Config, error) {
	read := configutil.ReadConfig[Config]
	if filepath.Base(path) == path {
		read = configutil.ReadRecursively[Config]
	}
	cfg, err := read(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}

	defaults := defaultConfig()
	if cfg.Site == "" {
		cfg.Site = defaults.Site
	}
	if cfg.Documents == "" {
		cfg.Documents = defaults.Documents
	}
	return cfg, nil
}

// outputPath is where a site's result goes when no output was configured.
func outputPath(cfg Config) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	return "DATA/osgoode_" + cfg.Site + ".json"
}
