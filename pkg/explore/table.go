package explore

import (
	"fmt"
	"sort"
	"strings"
)

// feeTierBase converts a fee tier in hundredths of a basis point to a fraction.
const feeTierBase = 1_000_000

// TablePool is one row of a pools table, flattened from V3 pools and V2 pairs.
type TablePool struct {
	Hash            string          `json:"hash"`
	Token0          Token           `json:"token0"`
	Token1          Token           `json:"token1"`
	TxCount         int             `json:"txCount"`
	TVL             float64         `json:"tvl"`
	Volume24h       float64         `json:"volume24h"`
	VolumeWeek      float64         `json:"volumeWeek"`
	Turnover        float64         `json:"turnover"`
	FeeTier         int             `json:"feeTier"`
	ProtocolVersion ProtocolVersion `json:"protocolVersion"`

	reserveUSD string
}

// Turnover is the daily fee yield of a pool: fees earned on 24h volume
// relative to TVL. It is 0 when any input is 0.
func Turnover(volume24h, tvl float64, feeTier int) float64 {
	if volume24h == 0 || tvl == 0 || feeTier == 0 {
		return 0
	}
	return volume24h * float64(feeTier) / feeTierBase / tvl
}

// NewTablePool flattens a pool. V2 pools always use the V2 fee tier.
func NewTablePool(pool Pool) TablePool {
	feeTier := pool.FeeTier
	if pool.ProtocolVersion == ProtocolV2 {
		feeTier = V2FeeTier
	}
	return TablePool{
		Hash:            pool.Address,
		Token0:          pool.Token0,
		Token1:          pool.Token1,
		TxCount:         pool.TxCount,
		TVL:             pool.TotalLiquidity.Value,
		Volume24h:       pool.Volume24h.Value,
		VolumeWeek:      pool.VolumeWeek.Value,
		Turnover:        Turnover(pool.Volume24h.Value, pool.TotalLiquidity.Value, feeTier),
		FeeTier:         feeTier,
		ProtocolVersion: pool.ProtocolVersion,
		reserveUSD:      pool.ReserveUSD,
	}
}

// PoolSortField is a sortable pools table column.
type PoolSortField string

const (
	SortTVL        PoolSortField = "TVL"
	SortVolume24h  PoolSortField = "VOLUME_24H"
	SortVolumeWeek PoolSortField = "VOLUME_WEEK"
	SortTurnover   PoolSortField = "TURNOVER"
	SortTxCount    PoolSortField = "TX_COUNT"
)

// ParsePoolSortField parses a sort column name case-insensitively.
func ParsePoolSortField(s string) (PoolSortField, error) {
	field := PoolSortField(strings.ToUpper(strings.TrimSpace(s)))
	switch field {
	case SortTVL, SortVolume24h, SortVolumeWeek, SortTurnover, SortTxCount:
		return field, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// PoolSortState is the sort column and direction of a pools table.
type PoolSortState struct {
	Field     PoolSortField
	Ascending bool
}

// DefaultPoolSort orders by TVL, largest first.
var DefaultPoolSort = PoolSortState{Field: SortTVL}

func (s PoolSortState) value(pool TablePool) float64 {
	switch s.Field {
	case SortVolume24h:
		return pool.Volume24h
	case SortVolumeWeek:
		return pool.VolumeWeek
	case SortTurnover:
		return pool.Turnover
	case SortTxCount:
		return float64(pool.TxCount)
	default:
		return pool.TVL
	}
}

// SortPools returns a sorted copy of pools. Equal rows keep their order.
func SortPools(pools []TablePool, state PoolSortState) []TablePool {
	sorted := make([]TablePool, len(pools))
	copy(sorted, pools)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := state.value(sorted[i]), state.value(sorted[j])
		if state.Ascending {
			return a < b
		}
		return a > b
	})
	return sorted
}
