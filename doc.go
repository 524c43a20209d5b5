// Package lapis is a client-side request layer: every call runs through an
// onion of two-hook middlewares around one asynchronous transport round trip,
// and its body is read through a business envelope convention.
//
//   - Log, Loading (debounced indicator + business feedback), Cache
//     (stale-while-revalidate) and Remap (per call envelope) built in
//   - Pluggable Transport; the default HTTP one adds a circuit breaker, a
//     rate limiter, retries with backoff and brotli decoding
//   - Optional de-duplication of identical in-flight requests
//   - In-memory and Redis stores with a stable persisted form
//   - Prometheus metrics and structured logging through zap, logrus or zerolog
//
// Composition follows the onion rule: the last middleware passed is the
// outermost, so its pre hook runs first and its post hook last.
//
// Typical usage:
//
//	client := lapis.New(
//	    lapis.WithSimpleLogger(),
//	    lapis.WithStore(lapis.NewInMemoryStore(10*time.Minute)),
//	)
//	s := client.Call(ctx, lapis.Endpoint{BaseURL: "https://api.example.com", Path: "/users/1"},
//	    client.Cache(), client.Loading(lapis.Target{Kind: lapis.TargetPage}), client.Log())
//	for d := range lapis.ObjResults[User](s) {
//	    if d.Err != nil { ... }          // transport failure
//	    if !d.Result.Success { ... }     // business failure
//	    use(d.Model)
//	}
//
// A call yields one value, or two on a cache hit (stored, then live). Callers
// branch first on the stream failure and then on Result.Success.
package lapis
