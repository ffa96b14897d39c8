// Package rest provides the shared machinery behind every REST connector:
// an HTTP client with rate limiting and retry, a page iterator driven by
// provider-specific parsers, and a watermark tracker.
//
// A connector wires these together as
//
//	client := rest.NewClient(auth, rest.WithRateLimiter(rest.NewRateLimiter("gorgias")))
//	source := &rest.JSONSource{Client: client, URL: url, Params: params, Parser: parser}
//	pager := rest.NewPaginator(source, rest.StopWhen(tracker.Reached))
//
// and drains the paginator until it returns iterator.Done.
package rest
