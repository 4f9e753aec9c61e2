package serviceutil

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitForEnter(t *testing.T) {
	var out bytes.Buffer
	err := WaitForEnter(context.Background(), strings.NewReader("\n"), &out, "press ENTER")
	require.Nil(t, err)
	require.Equal(t, "press ENTER\n", out.String())
}

func TestWaitForEnterCancelled(t *testing.T) {
	// the reader never returns
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForEnter(ctx, r, io.Discard, "press ENTER")
	require.ErrorIs(t, err, context.Canceled)
}
