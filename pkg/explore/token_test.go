package explore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	marketToken  = `[{"address":"0xa","name":"A","symbol":"A","decimals":"18","price_USD":"2.5","current_year_min_USD_price":"1","current_year_max_USD_price":"4"}]`
	marketVolume = `[{"volume_24h_usd":"1000"}]`
	marketTVL    = `[{"total_value_locked":"400","tvl_usd":"1000000"}]`
)

func setMarket(t *testing.T, mocks *testBackends) {
	t.Helper()
	mocks.analytics.SetField("explore_token", marketToken)
	mocks.analytics.SetField("explore_token_volume", marketVolume)
	mocks.analytics.SetField("explore_token_tvl", marketTVL)
}

func TestTokenMarket(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	setMarket(t, mocks)

	market, err := explorer.TokenMarket(context.Background(), "0xa")
	require.NoError(t, err)
	require.NotNil(t, market)

	assert.Equal(t, "Token:0xa", decodeID(t, market.ID))
	assert.Equal(t, 2.5, market.Price)
	assert.Equal(t, 4.0, market.PriceHigh52W)
	assert.Equal(t, 1.0, market.PriceLow52W)
	assert.Equal(t, 1000.0, market.Volume24H)
	assert.Equal(t, 1000000.0, market.TotalValueLocked)
}

func TestTokenMarket_DefaultsToWETH(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	setMarket(t, mocks)

	_, err := explorer.TokenMarket(context.Background(), "")
	require.NoError(t, err)

	req, _ := mocks.analytics.LastRequest()
	assert.Equal(t, WETHAddress, req.Variables.Get("address").String())
}

func TestTransformTokenMarket_RequiresAllParts(t *testing.T) {
	for name, data := range map[string]string{
		"no token":  `{"explore_token":[],"explore_token_volume":` + marketVolume + `,"explore_token_tvl":` + marketTVL + `}`,
		"no volume": `{"explore_token":` + marketToken + `,"explore_token_tvl":` + marketTVL + `}`,
		"no tvl":    `{"explore_token":` + marketToken + `,"explore_token_volume":` + marketVolume + `}`,
	} {
		t.Run(name, func(t *testing.T) {
			market, err := transformTokenMarket(response(data))
			assert.NoError(t, err)
			assert.Nil(t, market)
		})
	}
}

const priceRows = `[
	{"timestamp":"1696118400","value_usd":"1600","open":"1590","close":"1600","min":"1580","max":"1610"},
	{"timestamp":"1696122000","value_usd":"1650.5","open":"1600","close":"1650.5","min":"1599","max":"1660"}
]`

func TestTokenPrice_OHLC(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	mocks.analytics.SetField("explore_token_market_price", priceRows)

	price, err := explorer.TokenPrice(context.Background(), TokenChartQuery{Address: "0xa", Chain: ChainEthereum, Duration: DurationDay})
	require.NoError(t, err)
	require.NotNil(t, price)

	assert.Equal(t, "Token:0xa", decodeID(t, price.TokenID))
	assert.Equal(t, "TokenMarket:0xa_USD", decodeID(t, price.MarketID))
	assert.Equal(t, 1650.5, price.Price.Value, "latest point is the current price")
	assert.Equal(t, "TokenPrice:0xa_USD", decodeID(t, price.Price.ID))
	assert.Nil(t, price.PriceHistory)
	require.Len(t, price.OHLC, 2)

	candle := price.OHLC[0]
	assert.Equal(t, "TimestampedOhlc:1696118400", decodeID(t, candle.ID))
	assert.Equal(t, 1590.0, candle.Open.Value)
	assert.Equal(t, 1580.0, candle.Low.Value)
	assert.Equal(t, 1610.0, candle.High.Value)
	assert.Equal(t, "Amount:1610_USD", decodeID(t, candle.High.ID))

	req, _ := mocks.analytics.LastRequest()
	assert.Equal(t, "1 hour", req.Variables.Get("interval").String())
	assert.Equal(t, "day", req.Variables.Get("duration").String())
	assert.False(t, req.Variables.Get("isWETH").Bool())
}

func TestTokenPrice_WETHFallback(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	mocks.analytics.SetField("explore_weth_market_price", priceRows)

	price, err := explorer.TokenPrice(context.Background(), TokenChartQuery{Chain: ChainEthereum, Duration: DurationYear, Fallback: true})
	require.NoError(t, err)
	require.NotNil(t, price)

	assert.Equal(t, "Token:"+WETHAddress, decodeID(t, price.TokenID))
	assert.Empty(t, price.Address)
	assert.Nil(t, price.OHLC)
	require.Len(t, price.PriceHistory, 2)
	assert.Equal(t, 1600.0, price.PriceHistory[0].Value)
	assert.Equal(t, "TimestampedAmount:1696118400", decodeID(t, price.PriceHistory[0].ID))

	req, _ := mocks.analytics.LastRequest()
	assert.True(t, req.Variables.Get("isWETH").Bool())
	assert.False(t, req.Variables.Get("token").Exists())
}

func TestTokenPrice_Skips(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	ctx := context.Background()

	for _, q := range []TokenChartQuery{
		{Address: "0xa", Chain: ChainOptimism, Duration: DurationDay},
		{Address: "0xa", Chain: ChainEthereum, Duration: DurationMax},
		{Address: "0xa", Chain: ChainEthereum, Duration: DurationFiveMinute},
	} {
		price, err := explorer.TokenPrice(ctx, q)
		assert.NoError(t, err)
		assert.Nil(t, price)
	}
	assert.Equal(t, 0, mocks.analytics.GetRequestCount())
}

func TestTokenTVL(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	mocks.analytics.SetField("explore_token_tvl", marketTVL)

	tvl, err := explorer.TokenTVL(context.Background(), "0xa")
	require.NoError(t, err)
	require.NotNil(t, tvl)
	assert.Equal(t, TokenTVL{Token: "0xa", Amount: 400, USD: 1000000}, *tvl)
}

func TestTokenHistoricalVolumes(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)
	mocks.analytics.SetField("explore_token_volume_history", `[{"timestamp":"1696118400","volume_usd":"77.7"}]`)
	ctx := context.Background()

	history, err := explorer.TokenHistoricalVolumes(ctx, TokenChartQuery{Chain: ChainEthereum, Duration: DurationMonth})
	require.NoError(t, err)
	require.NotNil(t, history)

	assert.Equal(t, WETHAddress, history.Token.Address)
	assert.Equal(t, "AgnosticMarketToken:"+WETHAddress+"_ETHEREUM", decodeID(t, history.MarketID))
	require.Len(t, history.HistoricalVolume, 1)
	assert.Equal(t, 77.7, history.HistoricalVolume[0].Value)
	assert.Equal(t, "AgnosticTimestampedAmount:1696118400_77.7", decodeID(t, history.HistoricalVolume[0].ID))

	req, _ := mocks.analytics.LastRequest()
	assert.Equal(t, "1 day", req.Variables.Get("interval").String())

	// No default token off Ethereum
	mocks.analytics.Reset()
	history, err = explorer.TokenHistoricalVolumes(ctx, TokenChartQuery{Chain: ChainBase, Duration: DurationMonth})
	assert.NoError(t, err)
	assert.Nil(t, history)
	assert.Equal(t, 0, mocks.analytics.GetRequestCount())
}

func TestToken_CombinesAssetsAndMarket(t *testing.T) {
	explorer, mocks := newTestExplorer(t, true)
	setMarket(t, mocks)
	mocks.assets.SetField("token", `{"id":"VG9rZW46MHhh","chain":"ETHEREUM","address":"0xa","standard":"ERC20","decimals":18,
		"name":"Token A","symbol":"A","project":{"id":"p1","name":"Project A","description":"desc","logoUrl":"https://logo"}}`)

	details, err := explorer.Token(context.Background(), "0xa")
	require.NoError(t, err)
	require.NotNil(t, details)

	assert.Equal(t, "Token A", details.Name)
	assert.Equal(t, StandardERC20, details.Standard)
	assert.Equal(t, 18, details.Decimals)
	assert.Equal(t, "Project A", details.Project.Name)
	require.Len(t, details.Project.Tokens, 1)
	assert.Equal(t, "0xa", details.Project.Tokens[0].Address)

	assert.Equal(t, 2.5, details.Market.Price.Value)
	assert.Equal(t, CurrencyUSD, details.Market.Price.Currency)
	assert.Equal(t, "Amount:2.5_USD", decodeID(t, details.Market.Price.ID))
	assert.Equal(t, 1000000.0, details.Market.TotalValueLocked.Value)

	req, _ := mocks.assets.LastRequest()
	assert.Equal(t, "0xa", req.Variables.Get("address").String())
}

func TestToken_Absent(t *testing.T) {
	explorer, mocks := newTestExplorer(t, true)
	setMarket(t, mocks)
	mocks.assets.SetField("token", `null`)

	details, err := explorer.Token(context.Background(), "0xa")
	assert.NoError(t, err)
	assert.Nil(t, details)
}

func TestToken_SkipsWithoutAssetsBackend(t *testing.T) {
	explorer, mocks := newTestExplorer(t, false)

	details, err := explorer.Token(context.Background(), "0xa")
	assert.NoError(t, err)
	assert.Nil(t, details)
	assert.Equal(t, 0, mocks.analytics.GetRequestCount())
}
