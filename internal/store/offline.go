package store

import (
	"context"
	"errors"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

var errOffline = errors.New("no remote backend configured")

// Offline is a Backend that always fails, leaving the store on its local
// mirror.
type Offline struct{}

func (Offline) List(context.Context, domain.Filters) ([]map[string]any, error) {
	return nil, errOffline
}

func (Offline) Create(context.Context, map[string]any) (map[string]any, error) {
	return nil, errOffline
}

func (Offline) Get(context.Context, string) (map[string]any, error) {
	return nil, errOffline
}

func (Offline) Delete(context.Context, string) error {
	return errOffline
}
