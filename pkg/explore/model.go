package explore

import (
	"fmt"
	"strings"
)

// Chain identifies a blockchain network.
type Chain string

const (
	ChainEthereum Chain = "ETHEREUM"
	ChainArbitrum Chain = "ARBITRUM"
	ChainOptimism Chain = "OPTIMISM"
	ChainPolygon  Chain = "POLYGON"
	ChainBase     Chain = "BASE"
	ChainBNB      Chain = "BNB"
	ChainCelo     Chain = "CELO"
)

// ParseChain parses a chain name case-insensitively.
func ParseChain(s string) (Chain, error) {
	chain := Chain(strings.ToUpper(strings.TrimSpace(s)))
	switch chain {
	case ChainEthereum, ChainArbitrum, ChainOptimism, ChainPolygon, ChainBase, ChainBNB, ChainCelo:
		return chain, nil
	}
	return "", fmt.Errorf("unknown chain %q", s)
}

// ProtocolVersion is the exchange protocol a pool belongs to.
type ProtocolVersion string

const (
	ProtocolV2 ProtocolVersion = "V2"
	ProtocolV3 ProtocolVersion = "V3"
)

// PoolTransactionType classifies a pool event.
type PoolTransactionType string

const (
	TransactionSwap   PoolTransactionType = "SWAP"
	TransactionAdd    PoolTransactionType = "ADD"
	TransactionRemove PoolTransactionType = "REMOVE"
)

// transactionType derives the transaction type from the event signature.
func transactionType(signature string) PoolTransactionType {
	switch {
	case strings.HasPrefix(signature, "Swap"):
		return TransactionSwap
	case strings.HasPrefix(signature, "Burn"):
		return TransactionRemove
	default:
		return TransactionAdd
	}
}

// Currency of an amount.
type Currency string

const CurrencyUSD Currency = "USD"

// TokenStandard of an asset.
type TokenStandard string

const (
	StandardNative TokenStandard = "NATIVE"
	StandardERC20  TokenStandard = "ERC20"
)

// Token is a token reference embedded in pools and transactions.
type Token struct {
	ID       string `json:"id"`
	Chain    Chain  `json:"chain"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals int    `json:"decimals,omitempty"`
}

// Amount is a value with a synthetic ID.
type Amount struct {
	ID       string   `json:"id,omitempty"`
	Value    float64  `json:"value"`
	Currency Currency `json:"currency,omitempty"`
}

// TimestampedAmount is one point of a time series.
type TimestampedAmount struct {
	ID        string  `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Pool is a row of a top pools listing.
type Pool struct {
	ID              string          `json:"id"`
	Address         string          `json:"address"`
	ProtocolVersion ProtocolVersion `json:"protocolVersion"`
	FeeTier         int             `json:"feeTier"`
	Token0          Token           `json:"token0"`
	Token1          Token           `json:"token1"`
	TotalLiquidity  Amount          `json:"totalLiquidity"`
	TxCount         int             `json:"txCount"`
	Volume24h       Amount          `json:"volume24h"`
	VolumeWeek      Amount          `json:"volumeWeek"`

	// ReserveUSD is the backend's V2 reserve string, the paging cursor.
	ReserveUSD string `json:"reserveUSD,omitempty"`
}

// PoolData is the detail view of one pool.
type PoolData struct {
	Address            string          `json:"address"`
	FeeTier            int             `json:"feeTier"`
	ProtocolVersion    ProtocolVersion `json:"protocolVersion"`
	TxCount            int             `json:"txCount"`
	Token0             Token           `json:"token0"`
	Token0Price        float64         `json:"token0Price"`
	TVLToken0          float64         `json:"tvlToken0"`
	Token1             Token           `json:"token1"`
	Token1Price        float64         `json:"token1Price"`
	TVLToken1          float64         `json:"tvlToken1"`
	TVLUSD             float64         `json:"tvlUSD"`
	TVLUSDChange       float64         `json:"tvlUSDChange"`
	VolumeUSD24H       float64         `json:"volumeUSD24H"`
	VolumeUSD24HChange float64         `json:"volumeUSD24HChange"`
}

// Transaction is a pool event. Quantities are kept as the backend's decimal
// strings.
type Transaction struct {
	ID              string              `json:"id,omitempty"`
	Account         string              `json:"account"`
	Chain           Chain               `json:"chain,omitempty"`
	Hash            string              `json:"hash"`
	ProtocolVersion ProtocolVersion     `json:"protocolVersion,omitempty"`
	Timestamp       int64               `json:"timestamp"`
	Token0          Token               `json:"token0"`
	Token0Quantity  string              `json:"token0Quantity"`
	Token1          Token               `json:"token1"`
	Token1Quantity  string              `json:"token1Quantity"`
	Type            PoolTransactionType `json:"type"`
	USDValue        Amount              `json:"usdValue"`
}

// PoolTransactions are the recent events of one pool.
type PoolTransactions struct {
	PoolID       string        `json:"id"`
	Transactions []Transaction `json:"transactions"`
}

// PoolVolumeHistory is the volume series of one pool.
type PoolVolumeHistory struct {
	PoolID           string              `json:"id"`
	HistoricalVolume []TimestampedAmount `json:"historicalVolume"`
}

// PoolPrice is one point of a pool price series.
type PoolPrice struct {
	ID          string  `json:"id"`
	Timestamp   int64   `json:"timestamp"`
	Token0Price float64 `json:"token0Price"`
	Token1Price float64 `json:"token1Price"`
}

// PoolPriceHistory is the price series of one pool.
type PoolPriceHistory struct {
	PoolID       string      `json:"id"`
	PriceHistory []PoolPrice `json:"priceHistory"`
}

// Tick is one initialized tick of a concentrated liquidity pool. Values are
// passed through unparsed.
type Tick struct {
	Tick         string `json:"tick"`
	LiquidityNet string `json:"liquidityNet"`
	Price0       string `json:"price0"`
	Price1       string `json:"price1"`
}

// TokenTransactions are the recent events touching one token.
type TokenTransactions struct {
	Token        Token         `json:"token"`
	Transactions []Transaction `json:"v3Transactions"`
}

// TokenMarket is the market summary of a token.
type TokenMarket struct {
	ID               string  `json:"id"`
	Address          string  `json:"address"`
	Price            float64 `json:"price"`
	PriceHigh52W     float64 `json:"priceHigh52W"`
	PriceLow52W      float64 `json:"priceLow52W"`
	Volume24H        float64 `json:"volume24H"`
	TotalValueLocked float64 `json:"totalValueLocked"`
}

// OHLC is one candle of a price series.
type OHLC struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Open      Amount `json:"open"`
	Close     Amount `json:"close"`
	Low       Amount `json:"low"`
	High      Amount `json:"high"`
}

// TokenPrice is a token's price chart. Exactly one of OHLC and PriceHistory
// is set, depending on whether the line-chart fallback was requested.
type TokenPrice struct {
	TokenID      string              `json:"id"`
	Address      string              `json:"address,omitempty"`
	Chain        Chain               `json:"chain"`
	MarketID     string              `json:"marketId"`
	Price        Amount              `json:"price"`
	OHLC         []OHLC              `json:"ohlc,omitempty"`
	PriceHistory []TimestampedAmount `json:"priceHistory,omitempty"`
}

// TokenTVL is the value locked in a token, in token units and in USD.
type TokenTVL struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
	USD    float64 `json:"usd"`
}

// TokenVolumeHistory is the volume series of one token.
type TokenVolumeHistory struct {
	Token            Token               `json:"token"`
	MarketID         string              `json:"marketId"`
	HistoricalVolume []TimestampedAmount `json:"historicalVolume"`
}

// Project describes the project behind a token.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	HomepageURL string       `json:"homepageUrl,omitempty"`
	LogoURL     string       `json:"logoUrl"`
	TwitterName string       `json:"twitterName,omitempty"`
	Tokens      []AssetToken `json:"tokens,omitempty"`
}

// AssetToken is the token record of the assets backend.
type AssetToken struct {
	ID       string        `json:"id"`
	Chain    Chain         `json:"chain"`
	Address  string        `json:"address"`
	Standard TokenStandard `json:"standard"`
	Decimals int           `json:"decimals"`
	Name     string        `json:"name"`
	Symbol   string        `json:"symbol"`
}

// TokenDetailsMarket is the market block of TokenDetails.
type TokenDetailsMarket struct {
	ID               string `json:"id"`
	Price            Amount `json:"price"`
	PriceHigh52W     Amount `json:"priceHigh52W"`
	PriceLow52W      Amount `json:"priceLow52W"`
	TotalValueLocked Amount `json:"totalValueLocked"`
	Volume24H        Amount `json:"volume24H"`
}

// TokenDetails combines asset metadata with market data.
type TokenDetails struct {
	AssetToken
	Market  TokenDetailsMarket `json:"market"`
	Project Project            `json:"project"`
}
