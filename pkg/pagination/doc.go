// Package pagination merges "load more" pages from one or more backends into
// a single accumulated list.
//
// Each source is paged by offset with a fixed page size. The accumulated list
// only ever grows by concatenation, so insertion order is arrival order and
// entries are never reordered or removed. Callers sort for display on their
// own copy.
//
// Example usage:
//
//	merger := pagination.NewMerger(pagination.DefaultConfig(),
//		pagination.Source[Pool]{Name: "v3", Fetcher: v3Pages},
//		pagination.Source[Pool]{Name: "v2", Fetcher: v2Pages},
//	)
//	err := merger.LoadMore(ctx, func() { log.Info().Msg("page loaded") })
//	pools := merger.Items()
//
// The merger:
//   - Keeps one in-flight guard per source; LoadMore while any guard is set is dropped
//   - Requests every source's next page concurrently at offset = items held for that source
//   - Leaves the guard of a failed source set until Reset is called
//   - Discards pages requested before a Reset or at an outdated offset, and
//     reports a load that kept no page as ErrLoadSuperseded
//   - Stops asking a source once it returns an empty page
package pagination
