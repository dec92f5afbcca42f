package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
)

// Evaluate runs one user through the pipeline and prints the assignment
// together with the full signal set as JSON on stdout.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions) error {
	if opts.UserID == "" {
		return errors.New("--user is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot evaluate")
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

	res, err := svc.EvaluateUser(ctx, opts.UserID, opts.ReferenceDate)
	if err != nil {
		return err
	}

	out := struct {
		Assigned any `json:"assigned"`
		Signals  any `json:"signals"`
		Flat     any `json:"signal_values"`
	}{
		Assigned: res.Assigned,
		Signals:  res.Signals,
		Flat:     res.Signals.Flatten(),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
