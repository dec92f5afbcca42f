package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent assignment audit rows.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show assignments")
	}
	defer closeStore()

	assignments, err := store.ListRecentAssignments(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		fmt.Fprintln(os.Stdout, "no assignments found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "User\tReference Date\tPersona\tPriority\tReason\tMatched\tCreated (UTC)")

	for _, rec := range assignments {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			rec.UserID,
			rec.ReferenceDate.UTC().Format("2006-01-02"),
			rec.PersonaID,
			rec.PriorityRank,
			rec.ResolutionReason,
			rec.MatchedCount,
			rec.CreatedAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}
