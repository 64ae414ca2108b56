// Package fresh provides a lazily materialized, freshness-checked shared value.
//
// A [Value] wraps one expensive-to-obtain value that may become stale. The
// value comes from a caller-supplied [Source], which knows how to fetch a new
// instance and how to tell whether the current one is still usable. However
// many goroutines call [Value.Get] at once, at most one refresh cycle runs at
// a time and every caller waiting on it receives that cycle's result:
//
//	rates := fresh.MustNew[Rates](fresh.SourceFuncs[Rates]{
//		IsFreshFunc: func(ctx context.Context, r Rates) (bool, error) {
//			return time.Since(r.At) < time.Minute, nil
//		},
//		FetchFunc: fetchRates,
//	}, fresh.WithName("rates"))
//
//	r, err := rates.Get(ctx)
//
// A refresh cycle checks freshness of the installed value (if any) and, when
// the value is missing or stale, fetches and installs a new one. Callers that
// arrive while a cycle is underway join it instead of starting another.
//
// Errors are not cached. A failed cycle leaves the previously installed
// value in place, hands the same error to every caller of that cycle, and the
// next call to [Value.Get] starts over.
//
// A caller whose context ends stops waiting, but the shared cycle is never
// canceled on its behalf; it runs to completion for everyone else.
package fresh
