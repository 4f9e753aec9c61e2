package serviceutil

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that will live until Ctrl+C is pressed.
// A second Ctrl+C falls back to the default behavior and kills the process.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

// WaitForEnter writes prompt to w and blocks until a line is read from r or
// ctx is done.
func WaitForEnter(ctx context.Context, r io.Reader, w io.Writer, prompt string) error {
	_, err := fmt.Fprintln(w, prompt)
	if err != nil {
		return err
	}

	read := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		read <- err
	}()

	select {
	case err := <-read:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
