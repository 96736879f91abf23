package explore

import (
	"context"
	"time"

	"github.com/Sternrassler/explore-client/pkg/graphql"
)

const poolTicksQuery = `
  query PoolTicks($poolAddress: String = "") {
    explore_pool_liquidity(pool_address: $poolAddress) {
      tick
      liquidity_net
      price0
      price1
    }
  }
`

// PoolTicks returns the initialized ticks of a V3 pool. Always fetched fresh.
func (e *Explorer) PoolTicks(ctx context.Context, pool string) ([]Tick, error) {
	if pool == "" {
		e.skip("pool_ticks", "empty pool address")
		return nil, nil
	}

	req := graphql.NewRequest(poolTicksQuery).
		Var("poolAddress", pool).
		CacheControl("no-cache")
	resp, err := e.query(ctx, e.analytics, "pool_ticks", req)
	if err != nil {
		return nil, err
	}

	ticks := transformPoolTicks(resp)
	e.record("pool_ticks", ticks != nil, nil)
	return ticks, nil
}

func transformPoolTicks(resp *graphql.Response) []Tick {
	items := rows(resp, "explore_pool_liquidity")
	if items == nil {
		return nil
	}

	ticks := make([]Tick, 0, len(items))
	for _, row := range items {
		ticks = append(ticks, Tick{
			Tick:         row.Get("tick").String(),
			LiquidityNet: row.Get("liquidity_net").String(),
			Price0:       row.Get("price0").String(),
			Price1:       row.Get("price1").String(),
		})
	}
	return ticks
}

// TickUpdate is one refresh of a watched pool.
type TickUpdate struct {
	Ticks     []Tick
	Err       error
	FetchedAt time.Time
}

// WatchPoolTicks polls the ticks of a pool, immediately and then every
// Config.TickPollInterval, until ctx is cancelled. The channel is closed when
// polling stops. A slow receiver skips refreshes rather than delaying them.
func (e *Explorer) WatchPoolTicks(ctx context.Context, pool string) <-chan TickUpdate {
	updates := make(chan TickUpdate, 1)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(e.config.TickPollInterval)
		defer ticker.Stop()

		logger := e.logger.With().Str("pool", pool).Logger()
		logger.Info().Dur("interval", e.config.TickPollInterval).Msg("Watching pool ticks")

		for {
			ticks, err := e.PoolTicks(ctx, pool)
			if ctx.Err() != nil {
				logger.Info().Msg("Stopped watching pool ticks")
				return
			}

			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			tickPolls.WithLabelValues(outcome).Inc()

			select {
			case updates <- TickUpdate{Ticks: ticks, Err: err, FetchedAt: time.Now()}:
			default:
				logger.Debug().Msg("Tick update dropped, receiver busy")
			}

			select {
			case <-ctx.Done():
				logger.Info().Msg("Stopped watching pool ticks")
				return
			case <-ticker.C:
			}
		}
	}()

	return updates
}
