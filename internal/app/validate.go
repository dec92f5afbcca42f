package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"persona-engine/internal/catalog"
)

// ValidateCatalog loads the persona catalog, reporting either the defects
// that reject it or a summary of the personas it declares.
func (a *App) ValidateCatalog(_ context.Context, path string) error {
	if path == "" {
		path = a.Config.Catalog.Path
	}

	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tPriority\tCombinator\tConditions")
	for _, p := range cat.Personas() {
		fmt.Fprintf(writer, "%s\t%d\t%s\t%d\n", p.ID, p.Priority, p.Criteria.Combinator, len(p.Criteria.Conditions))
	}
	fmt.Fprintf(writer, "%s\t-\tfallback\t-\n", cat.FallbackPersona().ID)
	writer.Flush()

	fmt.Fprintf(os.Stdout, "catalog %s is valid (%d personas + fallback)\n", path, cat.Len())
	return nil
}
