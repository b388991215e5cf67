package service

import (
	"context"

	"ScoutSync/internal/domain/models"
)

// FileSource retrieves raw workbooks into local storage and returns their paths.
type FileSource interface {
	FetchAll(ctx context.Context) ([]string, error)
}

// Notifier delivers the outcome of one file's reconciliation.
type Notifier interface {
	Notify(ctx context.Context, res *models.ReconciliationResult) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, res *models.ReconciliationResult) error

func (f NotifierFunc) Notify(ctx context.Context, res *models.ReconciliationResult) error {
	return f(ctx, res)
}
