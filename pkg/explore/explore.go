// Package explore fetches pools, tokens, transactions and protocol statistics
// from the exchange's GraphQL backends and reshapes every response into the
// canonical model of this package.
//
// Each adapter issues one GraphQL query and converts the response. Adapters
// follow the same conventions:
//   - Unsupported input (a chain other than Ethereum, a duration without a
//     bucket table entry, an empty address) skips the query and returns nil, nil.
//   - A missing, null or empty list in the response is absence: nil, nil.
//   - Numeric strings are converted with pkg/convert; malformed values fail the
//     adapter with a *convert.FieldError.
//   - Derived records carry synthetic IDs built by convert.SyntheticID.
package explore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

// WETHAddress is the wrapped ether contract on Ethereum mainnet, the default
// token of token-level charts.
const WETHAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

// V2FeeTier is the fee of every V2 pair in hundredths of a basis point.
const V2FeeTier = 3000

// Backends are the GraphQL clients the adapters talk to. Analytics is
// required. Assets and Indexer are optional; adapters that need a missing
// backend skip their query.
type Backends struct {
	Analytics *graphql.Client
	Assets    *graphql.Client
	Indexer   *graphql.Client
}

// Config holds explorer configuration.
type Config struct {
	// TickPollInterval is how often WatchPoolTicks refreshes
	TickPollInterval time.Duration

	// PageSize is the page size of "load more" listings
	PageSize int
}

// DefaultConfig returns the default explorer configuration.
func DefaultConfig() Config {
	return Config{
		TickPollInterval: 30 * time.Second,
		PageSize:         20,
	}
}

// Explorer runs the adapters against a set of backends.
type Explorer struct {
	analytics *graphql.Client
	assets    *graphql.Client
	indexer   *graphql.Client
	config    Config
	logger    zerolog.Logger
}

// New creates an explorer.
func New(backends Backends, cfg Config) (*Explorer, error) {
	if backends.Analytics == nil {
		return nil, errors.New("analytics backend is required")
	}

	defaults := DefaultConfig()
	if cfg.TickPollInterval <= 0 {
		cfg.TickPollInterval = defaults.TickPollInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}

	return &Explorer{
		analytics: backends.Analytics,
		assets:    backends.Assets,
		indexer:   backends.Indexer,
		config:    cfg,
		logger:    log.With().Str("component", "explore").Logger(),
	}, nil
}

// query runs an adapter request and records failures.
func (e *Explorer) query(ctx context.Context, client *graphql.Client, adapter string, req *graphql.Request) (*graphql.Response, error) {
	start := time.Now()
	resp, err := client.Query(ctx, req)
	adapterDuration.WithLabelValues(adapter).Observe(time.Since(start).Seconds())
	if err != nil {
		adapterResults.WithLabelValues(adapter, "error").Inc()
		e.logger.Error().Err(err).Str("adapter", adapter).Msg("Adapter query failed")
		return nil, fmt.Errorf("%s: %w", adapter, err)
	}
	return resp, nil
}

// skip records a query that was not issued.
func (e *Explorer) skip(adapter, reason string) {
	adapterResults.WithLabelValues(adapter, "skipped").Inc()
	e.logger.Debug().Str("adapter", adapter).Str("reason", reason).Msg("Query skipped")
}

// record counts the outcome of a transform.
func (e *Explorer) record(adapter string, present bool, err error) {
	switch {
	case err != nil:
		adapterResults.WithLabelValues(adapter, "error").Inc()
		e.logger.Warn().Err(err).Str("adapter", adapter).Msg("Malformed backend response")
	case !present:
		adapterResults.WithLabelValues(adapter, "absent").Inc()
		e.logger.Debug().Str("adapter", adapter).Msg("No data")
	default:
		adapterResults.WithLabelValues(adapter, "ok").Inc()
	}
}

// rows returns the elements of a list field, nil when the field is missing,
// null or empty.
func rows(resp *graphql.Response, field string) []gjson.Result {
	list := resp.Field(field)
	if !list.IsArray() {
		return nil
	}
	items := list.Array()
	if len(items) == 0 {
		return nil
	}
	return items
}

// first returns the first element of a list field.
func first(resp *graphql.Response, field string) (gjson.Result, bool) {
	items := rows(resp, field)
	if items == nil {
		return gjson.Result{}, false
	}
	return items[0], true
}

// ethereumToken builds a token reference on Ethereum from the token<n>_*
// columns of a row.
func ethereumToken(p *convert.Parser, row gjson.Result, prefix string, withDetails bool) Token {
	address := row.Get(prefix + "_address").String()
	token := Token{
		ID:      convert.SyntheticID("AgnosticToken", address, string(ChainEthereum)),
		Chain:   ChainEthereum,
		Address: address,
		Symbol:  convert.StripQuotes(row.Get(prefix + "_symbol").String()),
	}
	if withDetails {
		token.Name = convert.StripQuotes(row.Get(prefix + "_name").String())
		token.Decimals = p.Int(prefix+"_decimals", row.Get(prefix+"_decimals").String())
	}
	return token
}

func poolID(address string) string {
	return convert.SyntheticID("AgnosticPool", address, string(ChainEthereum))
}

func usdAmount(p *convert.Parser, field, value string) Amount {
	return Amount{
		ID:    convert.SyntheticID("Amount", value, string(CurrencyUSD)),
		Value: p.Float(field, value),
	}
}
