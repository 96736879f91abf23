package explore

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/Sternrassler/explore-client/pkg/cache"
	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

// Protocol-wide charts change once a day.
const (
	protocolCacheControl = "max-age=86400"
	cacheRefreshHeader   = cache.RefreshTriggerHeader
	cacheRefreshTrigger  = "0.9"
)

const historicalProtocolVolumeQuery = `
  query HistoricalProtocolVolume($interval: String = "day", $duration: String = "month", $all_time: Boolean = false) {
    explore_historical_protocol_volume(interval: $interval, duration: $duration) @skip(if: $all_time) {
      timestamp
      volume_usd
    }

    explore_historical_protocol_volume_all_time @include(if: $all_time) {
      timestamp
      volume_usd
    }
  }
`

// HistoricalProtocolVolume returns the V3 protocol volume series. Only
// Ethereum and the MONTH, YEAR and MAX durations are supported.
func (e *Explorer) HistoricalProtocolVolume(ctx context.Context, chain Chain, duration HistoryDuration) ([]TimestampedAmount, error) {
	window, ok := ProtocolVolumeWindowFor(duration)
	if !ok || chain != ChainEthereum {
		e.skip("historical_protocol_volume", "unsupported duration or chain")
		return nil, nil
	}

	req := graphql.NewRequest(historicalProtocolVolumeQuery).
		Var("interval", window.Interval).
		Var("all_time", window.AllTime).
		CacheControl(protocolCacheControl).
		WithHeader(cacheRefreshHeader, cacheRefreshTrigger)
	if window.Duration != "" {
		req.Var("duration", window.Duration)
	}
	resp, err := e.query(ctx, e.analytics, "historical_protocol_volume", req)
	if err != nil {
		return nil, err
	}

	series, err := transformHistoricalProtocolVolume(resp)
	e.record("historical_protocol_volume", series != nil, err)
	return series, err
}

func transformHistoricalProtocolVolume(resp *graphql.Response) ([]TimestampedAmount, error) {
	items := rows(resp, "explore_historical_protocol_volume")
	if items == nil {
		items = rows(resp, "explore_historical_protocol_volume_all_time")
	}
	if items == nil {
		return nil, nil
	}
	return timestampedAmounts(items, "volume_usd")
}

const dailyProtocolTVLQuery = `
  query DailyProtocolTVL {
    explore_daily_protocol_tvl_v3 {
      timestamp
      tvl_usd
    }
  }
`

// DailyProtocolTVL returns the daily V3 protocol TVL series on Ethereum.
func (e *Explorer) DailyProtocolTVL(ctx context.Context, chain Chain) ([]TimestampedAmount, error) {
	if chain != ChainEthereum {
		e.skip("daily_protocol_tvl", "unsupported chain")
		return nil, nil
	}

	req := graphql.NewRequest(dailyProtocolTVLQuery).
		CacheControl(protocolCacheControl).
		WithHeader(cacheRefreshHeader, cacheRefreshTrigger)
	resp, err := e.query(ctx, e.analytics, "daily_protocol_tvl", req)
	if err != nil {
		return nil, err
	}

	series, err := transformDailyProtocolTVL(resp)
	e.record("daily_protocol_tvl", series != nil, err)
	return series, err
}

func transformDailyProtocolTVL(resp *graphql.Response) ([]TimestampedAmount, error) {
	items := rows(resp, "explore_daily_protocol_tvl_v3")
	if items == nil {
		return nil, nil
	}
	return timestampedAmounts(items, "tvl_usd")
}

// timestampedAmounts converts {timestamp, <valueField>} rows.
func timestampedAmounts(items []gjson.Result, valueField string) ([]TimestampedAmount, error) {
	var p convert.Parser
	series := make([]TimestampedAmount, 0, len(items))
	for _, row := range items {
		ts := row.Get("timestamp").String()
		value := row.Get(valueField).String()
		series = append(series, TimestampedAmount{
			ID:        convert.SyntheticID("TimestampedAmount", ts, value),
			Timestamp: p.Unix("timestamp", ts),
			Value:     p.Float(valueField, value),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return series, nil
}
