package provider

import "context"

// PageFunc fetches one page of results. It returns the page, the token
// for the next page, and whether more pages remain.
type PageFunc[T any] func(ctx context.Context, token string) (items []T, next string, more bool, err error)

// Pager iterates a paginated listing lazily. It is finite and not
// restartable: once More reports false the pager is exhausted.
type Pager[T any] struct {
	fetch PageFunc[T]
	token string
	more  bool
}

func NewPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch, more: true}
}

// More reports whether another page may be available.
func (p *Pager[T]) More() bool {
	return p.more
}

// Next fetches the next page. Calling Next on an exhausted pager returns
// an empty page.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if !p.more {
		return nil, nil
	}
	items, next, more, err := p.fetch(ctx, p.token)
	if err != nil {
		p.more = false
		return nil, err
	}
	p.token = next
	p.more = more
	return items, nil
}

// FindFirst drains the pager until match accepts an item. It stops on the
// first accepted item without fetching further pages and returns
// ErrNotFound when the listing is exhausted without a match.
func FindFirst[T any](ctx context.Context, p *Pager[T], match func(T) bool) (T, error) {
	var zero T
	for p.More() {
		items, err := p.Next(ctx)
		if err != nil {
			return zero, err
		}
		for _, it := range items {
			if match(it) {
				return it, nil
			}
		}
	}
	return zero, ErrNotFound
}
