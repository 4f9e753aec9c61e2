package restyutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Add("User-Agent", "chrome")
	headers.Add("Cookie", "SessionID=secret")
	headers.Add("Accept", "text/html")
	headers.Add("Accept", "application/pdf")

	require.Equal(
		t,
		"Accept: text/html\nAccept: application/pdf\nCookie: <redacted>\nUser-Agent: chrome",
		formatHeaders(headers),
	)
	require.Equal(t, "", formatHeaders(http.Header{}))
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	require.Nil(t, os.MkdirAll(dir, 0777))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600))

	out, err := NewFilesystemOutput(dir)
	require.Nil(t, err)

	_, err = os.Stat(filepath.Join(dir, "stale.txt"))
	require.True(t, os.IsNotExist(err))

	out.Write("1", "exchange")
	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.Nil(t, err)
	require.Equal(t, "exchange", string(contents))
}
