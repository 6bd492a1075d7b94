package crawler

import (
	"context"
)

type ItemResult struct {
	Processed    int
	Succeeded    int
	Failed       int
	FailureKinds map[string]int
}

// ForEach runs fn over items one at a time. An item failure is counted and the loop
// continues; cancellation stops the loop and is returned so callers can propagate it.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error) (ItemResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var out ItemResult
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Processed++
		err := fn(ctx, it)
		if err == nil {
			out.Succeeded++
			continue
		}
		kind := KindOf(err)
		if kind == ErrorKindCanceled {
			out.Processed--
			return out, err
		}
		out.Failed++
		out.FailureKinds = mergeFailureKind(out.FailureKinds, kind)
	}
	return out, nil
}

func mergeFailureKind(m map[string]int, kind ErrorKind) map[string]int {
	if kind == "" {
		kind = ErrorKindUnknown
	}
	if m == nil {
		m = make(map[string]int, 1)
	}
	m[string(kind)]++
	return m
}
