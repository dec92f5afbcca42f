package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// Batch evaluates the whole user population for one reference date and
// prints a per-persona distribution summary.
func (a *App) Batch(ctx context.Context, opts BatchOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot run batch")
	}
	defer closeStore()

	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	svc := a.newService(store, cat, publisher, nil)

	summary, err := svc.RunBatch(ctx, opts.ReferenceDate)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Users\t%d\n", summary.Users)
	fmt.Fprintf(writer, "Evaluated\t%d\n", summary.Evaluated)
	fmt.Fprintf(writer, "Failed\t%d\n", summary.Failed)

	personas := make([]string, 0, len(summary.ByPersona))
	for id := range summary.ByPersona {
		personas = append(personas, id)
	}
	sort.Strings(personas)
	for _, id := range personas {
		fmt.Fprintf(writer, "persona %s\t%d\n", id, summary.ByPersona[id])
	}
	writer.Flush()

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d users failed evaluation", summary.Failed, summary.Users)
	}
	return nil
}
