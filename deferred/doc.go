// Package deferred implements the single-fire deferred value behind every
// lazy unit.
//
// A Deferred moves through UNSTARTED -> LOADING -> RESOLVED. Preload begins
// the fetch early to overlap network latency; Start returns the Future the
// hosting layer waits on once the unit is allowed to activate. Both coalesce
// onto the same attempt, so the import function runs once per resolution.
//
//	d := deferred.New(func(ctx context.Context) (any, error) {
//	    return fetchChunk(ctx, "./routes/settings")
//	})
//	d.Preload()              // at declaration time
//	mod, err := d.Start().Wait(ctx) // once the phase gate opens
//
// A rejected import is reported as errors.KindFetchFailure and is not cached:
// the unit falls back to UNSTARTED and the next Preload or Start fetches again.
// There is no automatic retry and no cancellation of an attempt in flight.
package deferred
