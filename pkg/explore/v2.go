package explore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

const v2PairFields = `
  fragment PairFields on Pair {
    id
    txCount
    reserveUSD
    token0 { id symbol name decimals }
    token1 { id symbol name decimals }
  }
`

const topV2PairsQuery = `
  query TopV2Pairs($first: Int!, $token: String!) {
    asToken0: pairs(first: $first, orderBy: reserveUSD, orderDirection: desc, where: { token0: $token }) {
      ...PairFields
    }
    asToken1: pairs(first: $first, orderBy: reserveUSD, orderDirection: desc, where: { token1: $token }) {
      ...PairFields
    }
  }
` + v2PairFields

const topV2PairsAfterQuery = `
  query TopV2PairsAfter($first: Int!, $token: String!, $cursor: BigDecimal!) {
    asToken0: pairs(first: $first, orderBy: reserveUSD, orderDirection: desc, where: { token0: $token, reserveUSD_lte: $cursor }) {
      ...PairFields
    }
    asToken1: pairs(first: $first, orderBy: reserveUSD, orderDirection: desc, where: { token1: $token, reserveUSD_lte: $cursor }) {
      ...PairFields
    }
  }
` + v2PairFields

const v2PairVolumesQuery = `
  query V2PairVolumes($pairs: [String!]!, $since: Int!) {
    pairDayDatas(first: 1000, orderBy: date, orderDirection: desc, where: { pairAddress_in: $pairs, date_gte: $since }) {
      pairAddress
      date
      dailyVolumeUSD
    }
  }
`

// V2Cursor marks the last pair of a V2 listing page. ReserveUSD is the
// backend's decimal string, passed back unchanged.
type V2Cursor struct {
	ReserveUSD string
	Pair       string
}

// TopV2Pairs returns up to first V2 pairs containing token from the indexer
// backend, ordered by TVL descending then address. A non-nil after continues
// past that pair, keeping pairs whose reserve ties with it.
// Volumes are filled from the last seven daily snapshots.
func (e *Explorer) TopV2Pairs(ctx context.Context, token string, first int, after *V2Cursor) ([]Pool, error) {
	if e.indexer == nil {
		e.skip("top_v2_pairs", "indexer backend not configured")
		return nil, nil
	}

	req := graphql.NewRequest(topV2PairsQuery)
	if after != nil {
		req = graphql.NewRequest(topV2PairsAfterQuery).Var("cursor", after.ReserveUSD)
	}
	req.Var("first", first).Var("token", token)

	resp, err := e.query(ctx, e.indexer, "top_v2_pairs", req)
	if err != nil {
		return nil, err
	}

	pairs, err := transformTopV2Pairs(resp, first, after)
	if err != nil || pairs == nil {
		e.record("top_v2_pairs", pairs != nil, err)
		return nil, err
	}

	if err := e.fillV2Volumes(ctx, pairs); err != nil {
		return nil, err
	}
	e.record("top_v2_pairs", true, nil)
	return pairs, nil
}

func transformTopV2Pairs(resp *graphql.Response, first int, after *V2Cursor) ([]Pool, error) {
	items := append(rows(resp, "asToken0"), rows(resp, "asToken1")...)
	if len(items) == 0 {
		return nil, nil
	}

	var bound decimal.Decimal
	if after != nil {
		d, err := convert.Decimal(after.ReserveUSD)
		if err != nil {
			return nil, err
		}
		bound = d
	}

	var p convert.Parser
	seen := make(map[string]bool, len(items))
	pairs := make([]Pool, 0, len(items))
	reserves := make(map[string]decimal.Decimal, len(items))
	for _, row := range items {
		address := row.Get("id").String()
		if seen[address] {
			continue
		}
		seen[address] = true

		raw := row.Get("reserveUSD").String()
		reserve, err := convert.Decimal(raw)
		if err != nil {
			return nil, &convert.FieldError{Field: "reserveUSD", Value: raw, Err: err}
		}
		// Rows tied with the cursor were delivered up to its pair.
		if after != nil && reserve.Equal(bound) && address <= after.Pair {
			continue
		}
		reserves[address] = reserve

		pairs = append(pairs, Pool{
			ID:              convert.SyntheticID("V2Pair", address, string(ChainEthereum)),
			Address:         address,
			ProtocolVersion: ProtocolV2,
			FeeTier:         V2FeeTier,
			Token0:          subgraphToken(&p, row.Get("token0")),
			Token1:          subgraphToken(&p, row.Get("token1")),
			TotalLiquidity:  Amount{Value: reserve.InexactFloat64()},
			TxCount:         p.Int("txCount", row.Get("txCount").String()),
			ReserveUSD:      raw,
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		ri, rj := reserves[pairs[i].Address], reserves[pairs[j].Address]
		if !ri.Equal(rj) {
			return ri.GreaterThan(rj)
		}
		return pairs[i].Address < pairs[j].Address
	})
	if first > 0 && len(pairs) > first {
		pairs = pairs[:first]
	}
	return pairs, nil
}

func subgraphToken(p *convert.Parser, token gjson.Result) Token {
	address := token.Get("id").String()
	return Token{
		ID:       convert.SyntheticID("Token", address, string(ChainEthereum)),
		Chain:    ChainEthereum,
		Address:  address,
		Symbol:   convert.StripQuotes(token.Get("symbol").String()),
		Name:     convert.StripQuotes(token.Get("name").String()),
		Decimals: p.Int("decimals", token.Get("decimals").String()),
	}
}

// fillV2Volumes sets 24h and weekly volume from daily snapshots.
func (e *Explorer) fillV2Volumes(ctx context.Context, pairs []Pool) error {
	addresses := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		addresses = append(addresses, pair.Address)
	}
	since := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -6).Unix()

	req := graphql.NewRequest(v2PairVolumesQuery).
		Var("pairs", addresses).
		Var("since", since)
	resp, err := e.query(ctx, e.indexer, "v2_pair_volumes", req)
	if err != nil {
		return err
	}
	return applyV2Volumes(resp, pairs)
}

func applyV2Volumes(resp *graphql.Response, pairs []Pool) error {
	type volumes struct {
		latestDate int64
		latest     float64
		week       float64
	}

	var p convert.Parser
	byPair := make(map[string]*volumes)
	for _, row := range rows(resp, "pairDayDatas") {
		address := row.Get("pairAddress").String()
		date := p.Unix("date", row.Get("date").String())
		volume := p.Float("dailyVolumeUSD", row.Get("dailyVolumeUSD").String())

		v, ok := byPair[address]
		if !ok {
			v = &volumes{latestDate: date, latest: volume}
			byPair[address] = v
		} else if date > v.latestDate {
			v.latestDate, v.latest = date, volume
		}
		v.week += volume
	}
	if err := p.Err(); err != nil {
		return err
	}

	for i := range pairs {
		if v, ok := byPair[pairs[i].Address]; ok {
			pairs[i].Volume24h = Amount{Value: v.latest}
			pairs[i].VolumeWeek = Amount{Value: v.week}
		}
	}
	return nil
}
