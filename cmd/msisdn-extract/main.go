// Command msisdn-extract looks up every MSISDN of an input table against an
// HTTP API and writes the selected response fields to an output table.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// exitError carries a process exit code other than 1
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintln(os.Stderr, "Hint:", hint)
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
