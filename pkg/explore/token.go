package explore

import (
	"context"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

const tokenMarketQuery = `
  query TokenMarket($address: String!) {
    explore_token(token_address: $address) {
      address
      name
      symbol
      decimals
      price_USD
      current_year_min_USD_price
      current_year_max_USD_price
    }

    explore_token_volume(token_address: $address) {
      volume_24h_usd
    }

    explore_token_tvl(token_address: $address) {
      total_value_locked
      tvl_usd
    }
  }
`

// TokenMarket returns the market summary of a token, WETH when address is
// empty. Token, volume and TVL must all be present.
func (e *Explorer) TokenMarket(ctx context.Context, address string) (*TokenMarket, error) {
	if address == "" {
		address = WETHAddress
	}

	resp, err := e.query(ctx, e.analytics, "token_market", graphql.NewRequest(tokenMarketQuery).Var("address", address))
	if err != nil {
		return nil, err
	}

	market, err := transformTokenMarket(resp)
	e.record("token_market", market != nil, err)
	return market, err
}

func transformTokenMarket(resp *graphql.Response) (*TokenMarket, error) {
	token, okToken := first(resp, "explore_token")
	volume, okVolume := first(resp, "explore_token_volume")
	tvl, okTVL := first(resp, "explore_token_tvl")
	if !okToken || !okVolume || !okTVL {
		return nil, nil
	}

	var p convert.Parser
	address := token.Get("address").String()
	market := &TokenMarket{
		ID:               convert.SyntheticID("Token", address),
		Address:          address,
		Price:            p.Float("price_USD", token.Get("price_USD").String()),
		PriceHigh52W:     p.Float("current_year_max_USD_price", token.Get("current_year_max_USD_price").String()),
		PriceLow52W:      p.Float("current_year_min_USD_price", token.Get("current_year_min_USD_price").String()),
		Volume24H:        p.Float("volume_24h_usd", volume.Get("volume_24h_usd").String()),
		TotalValueLocked: p.Float("tvl_usd", tvl.Get("tvl_usd").String()),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return market, nil
}

const tokenPriceQuery = `
  query TokenPrice($token: String, $duration: String!, $interval: String!, $isWETH: Boolean = false) {
    explore_token_market_price(token_address: $token, duration: $duration, interval: $interval) @skip(if: $isWETH) {
      timestamp
      value_usd
      open
      close
      min
      max
    }

    explore_weth_market_price(duration: $duration, interval: $interval) @include(if: $isWETH) {
      timestamp
      value_usd
      open
      close
      min
      max
    }
  }
`

// TokenChartQuery selects a token chart. An empty Address means WETH.
type TokenChartQuery struct {
	Address  string
	Chain    Chain
	Duration HistoryDuration

	// Fallback requests a plain price line instead of candles
	Fallback bool
}

// TokenPrice returns the price chart of a token on Ethereum.
func (e *Explorer) TokenPrice(ctx context.Context, q TokenChartQuery) (*TokenPrice, error) {
	window, ok := PriceWindow(q.Duration)
	if !ok || q.Chain != ChainEthereum {
		e.skip("token_price", "unsupported duration or chain")
		return nil, nil
	}

	req := graphql.NewRequest(tokenPriceQuery).
		Var("duration", window.Duration).
		Var("interval", window.Interval).
		Var("isWETH", q.Address == "")
	if q.Address != "" {
		req.Var("token", q.Address)
	}
	resp, err := e.query(ctx, e.analytics, "token_price", req)
	if err != nil {
		return nil, err
	}

	price, err := transformTokenPrice(q.Address, q.Fallback, resp)
	e.record("token_price", price != nil, err)
	return price, err
}

func transformTokenPrice(token string, fallback bool, resp *graphql.Response) (*TokenPrice, error) {
	field := "explore_token_market_price"
	address := token
	if token == "" {
		field = "explore_weth_market_price"
		address = WETHAddress
	}

	items := rows(resp, field)
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	out := &TokenPrice{
		TokenID:  convert.SyntheticID("Token", address),
		Address:  token,
		Chain:    ChainEthereum,
		MarketID: convert.SyntheticID("TokenMarket", address, string(CurrencyUSD)),
	}

	for _, row := range items {
		ts := row.Get("timestamp").String()
		timestamp := p.Unix("timestamp", ts)
		if fallback {
			out.PriceHistory = append(out.PriceHistory, TimestampedAmount{
				ID:        convert.SyntheticID("TimestampedAmount", ts),
				Timestamp: timestamp,
				Value:     p.Float("value_usd", row.Get("value_usd").String()),
			})
			continue
		}
		out.OHLC = append(out.OHLC, OHLC{
			ID:        convert.SyntheticID("TimestampedOhlc", ts),
			Timestamp: timestamp,
			Open:      usdAmount(&p, "open", row.Get("open").String()),
			Close:     usdAmount(&p, "close", row.Get("close").String()),
			Low:       usdAmount(&p, "min", row.Get("min").String()),
			High:      usdAmount(&p, "max", row.Get("max").String()),
		})
	}

	latest := items[len(items)-1]
	out.Price = Amount{
		ID:    convert.SyntheticID("TokenPrice", address, string(CurrencyUSD)),
		Value: p.Float("value_usd", latest.Get("value_usd").String()),
	}

	if err := p.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const tokenTVLQuery = `
  query TokenTVL($token: String = "") {
    explore_token_tvl(token_address: $token) {
      total_value_locked
      tvl_usd
    }
  }
`

// TokenTVL returns the value locked in a token.
func (e *Explorer) TokenTVL(ctx context.Context, token string) (*TokenTVL, error) {
	resp, err := e.query(ctx, e.analytics, "token_tvl", graphql.NewRequest(tokenTVLQuery).Var("token", token))
	if err != nil {
		return nil, err
	}

	tvl, err := transformTokenTVL(token, resp)
	e.record("token_tvl", tvl != nil, err)
	return tvl, err
}

func transformTokenTVL(token string, resp *graphql.Response) (*TokenTVL, error) {
	row, ok := first(resp, "explore_token_tvl")
	if !ok {
		return nil, nil
	}

	var p convert.Parser
	tvl := &TokenTVL{
		Token:  token,
		Amount: p.Float("total_value_locked", row.Get("total_value_locked").String()),
		USD:    p.Float("tvl_usd", row.Get("tvl_usd").String()),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return tvl, nil
}

const tokenVolumeHistoryQuery = `
  query TokenVolumeHistory($token: String!, $interval: String!, $duration: String!) {
    explore_token_volume_history(token_address: $token, interval: $interval, duration: $duration) {
      timestamp
      volume_usd
    }
  }
`

// TokenHistoricalVolumes returns the volume series of a token. An empty
// address means WETH on Ethereum and is skipped on other chains.
func (e *Explorer) TokenHistoricalVolumes(ctx context.Context, q TokenChartQuery) (*TokenVolumeHistory, error) {
	token := q.Address
	if token == "" && q.Chain == ChainEthereum {
		token = WETHAddress
	}

	window, ok := VolumeWindow(q.Duration)
	if !ok || token == "" {
		e.skip("token_historical_volumes", "unsupported duration or missing token")
		return nil, nil
	}

	req := graphql.NewRequest(tokenVolumeHistoryQuery).
		Var("token", token).
		Var("interval", window.Interval).
		Var("duration", window.Duration)
	resp, err := e.query(ctx, e.analytics, "token_historical_volumes", req)
	if err != nil {
		return nil, err
	}

	history, err := transformTokenVolumeHistory(token, resp)
	e.record("token_historical_volumes", history != nil, err)
	return history, err
}

func transformTokenVolumeHistory(token string, resp *graphql.Response) (*TokenVolumeHistory, error) {
	items := rows(resp, "explore_token_volume_history")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	series := make([]TimestampedAmount, 0, len(items))
	for _, row := range items {
		ts := row.Get("timestamp").String()
		volume := row.Get("volume_usd").String()
		series = append(series, TimestampedAmount{
			ID:        convert.SyntheticID("AgnosticTimestampedAmount", ts, volume),
			Timestamp: p.Unix("timestamp", ts),
			Value:     p.Float("volume_usd", volume),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	return &TokenVolumeHistory{
		Token:            Token{ID: token, Chain: ChainEthereum, Address: token},
		MarketID:         convert.SyntheticID("AgnosticMarketToken", token, string(ChainEthereum)),
		HistoricalVolume: series,
	}, nil
}

const tokenInfoQuery = `
  query TokenInfo($address: String = "") {
    token(address: $address) {
      id
      chain
      address
      standard
      decimals
      name
      symbol
      project {
        id
        name
        description
        homepageUrl
        logoUrl
        twitterName
      }
    }
  }
`

type assetTokenRecord struct {
	AssetToken
	Project Project `json:"project"`
}

// Token returns asset metadata from the assets backend combined with the
// market summary from the analytics backend. Both are fetched concurrently
// and both must be present.
func (e *Explorer) Token(ctx context.Context, address string) (*TokenDetails, error) {
	if e.assets == nil {
		e.skip("token", "assets backend not configured")
		return nil, nil
	}

	var (
		info   *graphql.Response
		market *TokenMarket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = e.query(gctx, e.assets, "token", graphql.NewRequest(tokenInfoQuery).Var("address", address))
		return err
	})
	g.Go(func() error {
		var err error
		market, err = e.TokenMarket(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details, err := transformToken(info, market)
	e.record("token", details != nil, err)
	return details, err
}

func transformToken(info *graphql.Response, market *TokenMarket) (*TokenDetails, error) {
	raw := info.Field("token")
	if market == nil || !raw.IsObject() {
		return nil, nil
	}

	var record assetTokenRecord
	if err := codec.UnmarshalFromString(raw.Raw, &record); err != nil {
		return nil, &convert.FieldError{Field: "token", Value: raw.Raw, Err: err}
	}

	amount := func(value float64) Amount {
		return Amount{
			ID:    convert.SyntheticID("Amount", strconv.FormatFloat(value, 'f', -1, 64), string(CurrencyUSD)),
			Value: value,
		}
	}

	price := amount(market.Price)
	price.Currency = CurrencyUSD

	project := record.Project
	project.Tokens = []AssetToken{record.AssetToken}

	return &TokenDetails{
		AssetToken: record.AssetToken,
		Market: TokenDetailsMarket{
			ID:               market.ID,
			Price:            price,
			PriceHigh52W:     amount(market.PriceHigh52W),
			PriceLow52W:      amount(market.PriceLow52W),
			TotalValueLocked: amount(market.TotalValueLocked),
			Volume24H:        amount(market.Volume24H),
		},
		Project: project,
	}, nil
}
