package explore

import (
	"context"

	"github.com/Sternrassler/explore-client/pkg/pagination"
)

// PoolsFromToken is a "load more" listing of the pools containing a token.
// V3 pools come from the analytics backend; V2 pairs are merged in when the
// indexer backend is configured. Only Ethereum is supported; on other chains
// LoadMore does nothing.
type PoolsFromToken struct {
	token  string
	chain  Chain
	merger *pagination.Merger[TablePool]
}

// PoolsFromToken creates the listing. Call LoadMore to fetch the first page.
func (e *Explorer) PoolsFromToken(token string, chain Chain) *PoolsFromToken {
	sources := []pagination.Source[TablePool]{{
		Name: "v3",
		Fetcher: pagination.PageFetcherFunc[TablePool](func(ctx context.Context, w pagination.Window[TablePool]) ([]TablePool, error) {
			pools, err := e.TopPoolsFromToken(ctx, token, chain, w.Limit, w.Offset)
			return tablePools(pools), err
		}),
	}}

	if e.indexer != nil {
		sources = append(sources, pagination.Source[TablePool]{
			Name: "v2",
			Fetcher: pagination.PageFetcherFunc[TablePool](func(ctx context.Context, w pagination.Window[TablePool]) ([]TablePool, error) {
				var after *V2Cursor
				if w.Last != nil {
					after = &V2Cursor{ReserveUSD: w.Last.reserveUSD, Pair: w.Last.Hash}
				}
				pairs, err := e.TopV2Pairs(ctx, token, w.Limit, after)
				return tablePools(pairs), err
			}),
		})
	}

	return &PoolsFromToken{
		token:  token,
		chain:  chain,
		merger: pagination.NewMerger(pagination.Config{PageSize: e.config.PageSize}, sources...),
	}
}

func tablePools(pools []Pool) []TablePool {
	if pools == nil {
		return nil
	}
	out := make([]TablePool, 0, len(pools))
	for _, pool := range pools {
		out = append(out, NewTablePool(pool))
	}
	return out
}

// LoadMore fetches the next page of every source. See pagination.Merger.LoadMore.
func (l *PoolsFromToken) LoadMore(ctx context.Context, onComplete func()) error {
	if l.chain != ChainEthereum {
		return nil
	}
	return l.merger.LoadMore(ctx, onComplete)
}

// Pools returns the merged pools sorted by state, limited to one page per load.
func (l *PoolsFromToken) Pools(state PoolSortState) []TablePool {
	pools := SortPools(l.merger.Items(), state)
	if target := l.merger.Target(); len(pools) > target {
		pools = pools[:target]
	}
	return pools
}

// Reset clears in-flight guards after a failed load.
func (l *PoolsFromToken) Reset() {
	l.merger.Reset()
}

// Loading reports whether a page is in flight or a failed load awaits Reset.
func (l *PoolsFromToken) Loading() bool {
	return l.merger.Fetching()
}

// Token returns the token address of the listing.
func (l *PoolsFromToken) Token() string {
	return l.token
}
