package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Site     string   `json:"site" yaml:"site"`
	Headless bool     `json:"headless" yaml:"headless"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
	Tabs     []string `json:"tabs" yaml:"tabs"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.Nil(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadConfig(t *testing.T) {
	cases := []struct {
		name     string
		file     string
		contents string
		local    string
		expected testConfig
	}{
		{
			name: "json5",
			file: "portalcrawl.json5",
			contents: `{
				// comments and trailing commas are fine
				site: "osgoode",
				timeout: "15s",
				tabs: ["Fall", "Winter",],
			}`,
			expected: testConfig{
				Site:    "osgoode",
				Timeout: Duration(15 * time.Second),
				Tabs:    []string{"Fall", "Winter"},
			},
		},
		{
			name:     "local override",
			file:     "portalcrawl.json5",
			contents: `{site: "osgoode", timeout: 1500}`,
			local:    `{site: "outlines", headless: true}`,
			expected: testConfig{
				Site:     "outlines",
				Headless: true,
				Timeout:  Duration(1500 * time.Millisecond),
			},
		},
		{
			name:     "yaml",
			file:     "portalcrawl.yaml",
			contents: "site: osgoode\ntimeout: 2m\ntabs:\n  - Fall\n",
			local:    "headless: true\n",
			expected: testConfig{
				Site:     "osgoode",
				Headless: true,
				Timeout:  Duration(2 * time.Minute),
				Tabs:     []string{"Fall"},
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, test.file), test.contents)
			if test.local != "" {
				prefix, ext := splitExt(test.file)
				writeFile(t, filepath.Join(dir, prefix+".local."+ext), test.local)
			}

			config, err := ReadConfig[testConfig](filepath.Join(dir, test.file))
			require.Nil(t, err)
			diff := cmp.Diff(test.expected, config)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nothing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json5")
	writeFile(t, path, `{timeout: "soon"}`)
	_, err := ReadConfig[testConfig](path)
	require.ErrorContains(t, err, "invalid duration")
}

func TestReadUpwards(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "portalcrawl.json5"), `{site: "osgoode"}`)
	nested := filepath.Join(root, "a", "b")
	require.Nil(t, os.MkdirAll(nested, 0755))

	config, err := readUpwards[testConfig](nested, "portalcrawl.json5")
	require.Nil(t, err)
	require.Equal(t, "osgoode", config.Site)
}

func TestDurationOr(t *testing.T) {
	require.Equal(t, time.Second, Duration(0).Or(time.Second))
	require.Equal(t, time.Minute, Duration(time.Minute).Or(time.Second))
}
