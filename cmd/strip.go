package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rm-hull/png-scrubber/internal"
)

// Strip removes metadata chunks from every PNG in inputs and prints a
// report. It fails if any file failed.
func Strip(ctx context.Context, inputs []string, opts internal.Options) error {
	proc, err := internal.NewProcessor(inputs, opts)
	if err != nil {
		return err
	}

	report := proc.Run(ctx)
	report.Print(os.Stdout)

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(report.Failed), report.Total)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}
