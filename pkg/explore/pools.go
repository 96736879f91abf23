package explore

import (
	"context"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

const topPoolsQuery = `
  query TopPools {
    toppools_explore {
      address
      chain_name
      fee_tier
      last_block_number
      protocol_version
      token0_address
      token0_decimals
      token0_locked
      token0_name
      token0_symbol
      token1_address
      token1_decimals
      token1_locked
      token1_name
      token1_symbol
      tvl_usd
      tx_count
      volume24h_usd
      volume1week_usd
    }
  }
`

// TopPools returns the top V3 pools on Ethereum.
func (e *Explorer) TopPools(ctx context.Context) ([]Pool, error) {
	resp, err := e.query(ctx, e.analytics, "top_pools", graphql.NewRequest(topPoolsQuery))
	if err != nil {
		return nil, err
	}

	pools, err := transformTopPools(resp)
	e.record("top_pools", pools != nil, err)
	return pools, err
}

func transformTopPools(resp *graphql.Response) ([]Pool, error) {
	items := rows(resp, "toppools_explore")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	pools := make([]Pool, 0, len(items))
	for _, row := range items {
		address := row.Get("address").String()
		pools = append(pools, Pool{
			ID:              poolID(address),
			Address:         address,
			ProtocolVersion: ProtocolV3,
			FeeTier:         p.Int("fee_tier", row.Get("fee_tier").String()),
			Token0:          ethereumToken(&p, row, "token0", true),
			Token1:          ethereumToken(&p, row, "token1", true),
			TotalLiquidity:  Amount{Value: p.Float("tvl_usd", row.Get("tvl_usd").String())},
			TxCount:         p.Int("tx_count", row.Get("tx_count").String()),
			Volume24h:       Amount{Value: p.Float("volume24h_usd", row.Get("volume24h_usd").String())},
			VolumeWeek:      Amount{Value: p.Float("volume1week_usd", row.Get("volume1week_usd").String())},
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}

const poolDataQuery = `
  query PoolData($pool: String!) {
    explore_pool(pool: $pool) {
      address
      fee_tier
      tx_count
      token0_address
      token0_name
      token0_symbol
      token0_decimals
      token0_price_usd
      token0_locked
      token1_address
      token1_name
      token1_symbol
      token1_decimals
      token1_price_usd
      token1_locked
      volume_24h_usd
      tvl_usd
      tvl_change_24h_percent
      volume_change_24h_percent
    }
  }
`

// PoolData returns the details of one V3 pool. Only Ethereum is supported.
func (e *Explorer) PoolData(ctx context.Context, pool string, chain Chain) (*PoolData, error) {
	if pool == "" {
		e.skip("pool_data", "empty pool address")
		return nil, nil
	}
	if chain != ChainEthereum {
		e.skip("pool_data", "unsupported chain")
		return nil, nil
	}

	resp, err := e.query(ctx, e.analytics, "pool_data", graphql.NewRequest(poolDataQuery).Var("pool", pool))
	if err != nil {
		return nil, err
	}

	data, err := transformPoolData(resp)
	e.record("pool_data", data != nil, err)
	return data, err
}

func transformPoolData(resp *graphql.Response) (*PoolData, error) {
	row, ok := first(resp, "explore_pool")
	if !ok {
		return nil, nil
	}

	var p convert.Parser
	data := &PoolData{
		Address:            row.Get("address").String(),
		FeeTier:            p.Int("fee_tier", row.Get("fee_tier").String()),
		ProtocolVersion:    ProtocolV3,
		TxCount:            p.Int("tx_count", row.Get("tx_count").String()),
		Token0:             ethereumToken(&p, row, "token0", true),
		Token0Price:        p.Float("token0_price_usd", row.Get("token0_price_usd").String()),
		TVLToken0:          p.Float("token0_locked", row.Get("token0_locked").String()),
		Token1:             ethereumToken(&p, row, "token1", true),
		Token1Price:        p.Float("token1_price_usd", row.Get("token1_price_usd").String()),
		TVLToken1:          p.Float("token1_locked", row.Get("token1_locked").String()),
		TVLUSD:             p.Float("tvl_usd", row.Get("tvl_usd").String()),
		TVLUSDChange:       p.Float("tvl_change_24h_percent", row.Get("tvl_change_24h_percent").String()),
		VolumeUSD24H:       p.Float("volume_24h_usd", row.Get("volume_24h_usd").String()),
		VolumeUSD24HChange: p.Float("volume_change_24h_percent", row.Get("volume_change_24h_percent").String()),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

const poolTransactionsQuery = `
  query PoolTransactions($pool: String!) {
    explore_pool_transactions(pool: $pool) {
      address
      account
      timestamp
      signature
      block_number
      transaction_index
      token0_address
      token0_symbol
      token0_quantity
      token1_address
      token1_symbol
      token1_quantity
      price_usd
    }
  }
`

// PoolTransactions returns the recent events of a pool. Always fetched fresh.
func (e *Explorer) PoolTransactions(ctx context.Context, pool string) (*PoolTransactions, error) {
	if pool == "" {
		e.skip("pool_transactions", "empty pool address")
		return nil, nil
	}

	req := graphql.NewRequest(poolTransactionsQuery).
		Var("pool", pool).
		CacheControl("no-cache")
	resp, err := e.query(ctx, e.analytics, "pool_transactions", req)
	if err != nil {
		return nil, err
	}

	txs, err := transformPoolTransactions(pool, resp)
	e.record("pool_transactions", txs != nil, err)
	return txs, err
}

func transformPoolTransactions(pool string, resp *graphql.Response) (*PoolTransactions, error) {
	items := rows(resp, "explore_pool_transactions")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	txs := make([]Transaction, 0, len(items))
	for _, row := range items {
		tx := transaction(&p, row, false)
		price := row.Get("price_usd").String()
		tx.USDValue.ID = convert.SyntheticID("AgnosticAmount", price, string(CurrencyUSD))
		txs = append(txs, tx)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	return &PoolTransactions{
		PoolID:       poolID(pool),
		Transactions: txs,
	}, nil
}

const poolVolumeHistoryQuery = `
  query PoolVolumeHistory($pool: String!, $interval: String!, $duration: String!) {
    explore_pool_volume_history(pool: $pool, interval: $interval, duration: $duration) {
      date
      volume_usd
    }
  }
`

// PoolChartQuery selects a pool chart.
type PoolChartQuery struct {
	Address  string
	Version  ProtocolVersion
	Duration HistoryDuration
}

// PoolVolumeHistory returns the volume series of a V3 pool.
func (e *Explorer) PoolVolumeHistory(ctx context.Context, q PoolChartQuery) (*PoolVolumeHistory, error) {
	window, ok := VolumeWindow(q.Duration)
	if !ok || q.Version != ProtocolV3 {
		e.skip("pool_volume_history", "unsupported duration or protocol version")
		return nil, nil
	}

	req := graphql.NewRequest(poolVolumeHistoryQuery).
		Var("pool", q.Address).
		Var("interval", window.Interval).
		Var("duration", window.Duration)
	resp, err := e.query(ctx, e.analytics, "pool_volume_history", req)
	if err != nil {
		return nil, err
	}

	history, err := transformPoolVolumeHistory(q.Address, resp)
	e.record("pool_volume_history", history != nil, err)
	return history, err
}

func transformPoolVolumeHistory(pool string, resp *graphql.Response) (*PoolVolumeHistory, error) {
	items := rows(resp, "explore_pool_volume_history")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	series := make([]TimestampedAmount, 0, len(items))
	for _, row := range items {
		timestamp := p.Unix("date", row.Get("date").String())
		volume := row.Get("volume_usd").String()
		series = append(series, TimestampedAmount{
			ID:        convert.SyntheticID("AgnosticTimeAmount", strconv.FormatInt(timestamp, 10), volume),
			Timestamp: timestamp,
			Value:     p.Float("volume_usd", volume),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	return &PoolVolumeHistory{PoolID: pool, HistoricalVolume: series}, nil
}

const poolPriceHistoryQuery = `
  query PoolPriceHistory($pool: String!, $interval: String!, $duration: String!) {
    explore_pool_price_history(pool: $pool, interval: $interval, duration: $duration) {
      date
      token0_price
      token1_price
    }
  }
`

// PoolPriceHistory returns the price series of a V3 pool.
func (e *Explorer) PoolPriceHistory(ctx context.Context, q PoolChartQuery) (*PoolPriceHistory, error) {
	window, ok := PriceWindow(q.Duration)
	if !ok || q.Version != ProtocolV3 {
		e.skip("pool_price_history", "unsupported duration or protocol version")
		return nil, nil
	}

	req := graphql.NewRequest(poolPriceHistoryQuery).
		Var("pool", q.Address).
		Var("interval", window.Interval).
		Var("duration", window.Duration)
	resp, err := e.query(ctx, e.analytics, "pool_price_history", req)
	if err != nil {
		return nil, err
	}

	history, err := transformPoolPriceHistory(q.Address, resp)
	e.record("pool_price_history", history != nil, err)
	return history, err
}

func transformPoolPriceHistory(pool string, resp *graphql.Response) (*PoolPriceHistory, error) {
	items := rows(resp, "explore_pool_price_history")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	series := make([]PoolPrice, 0, len(items))
	for _, row := range items {
		timestamp := p.Unix("date", row.Get("date").String())
		price0 := row.Get("token0_price").String()
		price1 := row.Get("token1_price").String()
		series = append(series, PoolPrice{
			ID:          convert.SyntheticID("AgnosticPoolPrice", strconv.FormatInt(timestamp, 10), price0, price1),
			Timestamp:   timestamp,
			Token0Price: p.Float("token0_price", price0),
			Token1Price: p.Float("token1_price", price1),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	return &PoolPriceHistory{PoolID: pool, PriceHistory: series}, nil
}

const topPoolsFromTokenQuery = `
  query TopPoolsFromToken($token: String!, $limit: String!, $offset: String!) {
    explore_top_pools_from_token(token_address: $token, limit: $limit, offset: $offset) {
      address
      tx_count
      fee_tier
      token0_address
      token0_symbol
      token1_address
      token1_symbol
      tvl_usd
      volume_24h_usd
      volume_7days_usd
    }
  }
`

// TopPoolsFromToken returns one page of the V3 pools containing a token,
// ordered by the backend. Only Ethereum is supported.
func (e *Explorer) TopPoolsFromToken(ctx context.Context, token string, chain Chain, limit, offset int) ([]Pool, error) {
	if chain != ChainEthereum {
		e.skip("top_pools_from_token", "unsupported chain")
		return nil, nil
	}

	req := graphql.NewRequest(topPoolsFromTokenQuery).
		Var("token", token).
		Var("limit", strconv.Itoa(limit)).
		Var("offset", strconv.Itoa(offset))
	resp, err := e.query(ctx, e.analytics, "top_pools_from_token", req)
	if err != nil {
		return nil, err
	}

	pools, err := transformTopPoolsFromToken(resp)
	e.record("top_pools_from_token", pools != nil, err)
	return pools, err
}

func transformTopPoolsFromToken(resp *graphql.Response) ([]Pool, error) {
	items := rows(resp, "explore_top_pools_from_token")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	pools := make([]Pool, 0, len(items))
	for _, row := range items {
		address := row.Get("address").String()
		pools = append(pools, Pool{
			ID:              poolID(address),
			Address:         address,
			ProtocolVersion: ProtocolV3,
			TxCount:         p.Int("tx_count", row.Get("tx_count").String()),
			FeeTier:         p.Int("fee_tier", row.Get("fee_tier").String()),
			TotalLiquidity:  Amount{Value: p.Float("tvl_usd", row.Get("tvl_usd").String())},
			Volume24h:       Amount{Value: p.Float("volume_24h_usd", row.Get("volume_24h_usd").String())},
			VolumeWeek:      Amount{Value: p.Float("volume_7days_usd", row.Get("volume_7days_usd").String())},
			Token0:          ethereumToken(&p, row, "token0", false),
			Token1:          ethereumToken(&p, row, "token1", false),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}

// transaction converts a transaction row. The USD value ID is left to the
// caller.
func transaction(p *convert.Parser, row gjson.Result, withDetails bool) Transaction {
	return Transaction{
		Account:        row.Get("account").String(),
		Hash:           convert.TxURL(row.Get("block_number").String(), row.Get("transaction_index").String()),
		Timestamp:      p.Unix("timestamp", row.Get("timestamp").String()),
		Token0:         ethereumToken(p, row, "token0", withDetails),
		Token0Quantity: row.Get("token0_quantity").String(),
		Token1:         ethereumToken(p, row, "token1", withDetails),
		Token1Quantity: row.Get("token1_quantity").String(),
		Type:           transactionType(row.Get("signature").String()),
		USDValue:       Amount{Value: p.FloatOr("price_usd", row.Get("price_usd").String(), 0)},
	}
}
