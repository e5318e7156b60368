// Package events delivers committed domain changes to listeners.
package events

import (
	"context"
	"errors"

	"github.com/kirinyoku/periodic-tables/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, ch domain.Change) error
}

// Fanout publishes to every non-nil publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ch domain.Change) error {
	var errs []error

	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ch); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type PublisherFunc func(ctx context.Context, ch domain.Change) error

func (f PublisherFunc) Publish(ctx context.Context, ch domain.Change) error {
	return f(ctx, ch)
}
