package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnover(t *testing.T) {
	tests := []struct {
		name      string
		volume24h float64
		tvl       float64
		feeTier   int
		want      float64
	}{
		{name: "v3 pool", volume24h: 1_000_000, tvl: 2_000_000, feeTier: 500, want: 0.00025},
		{name: "v2 fee tier", volume24h: 200, tvl: 5000, feeTier: V2FeeTier, want: 0.00012},
		{name: "no volume", volume24h: 0, tvl: 5000, feeTier: 500, want: 0},
		{name: "no tvl", volume24h: 200, tvl: 0, feeTier: 500, want: 0},
		{name: "no fee tier", volume24h: 200, tvl: 5000, feeTier: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Turnover(tt.volume24h, tt.tvl, tt.feeTier), 1e-12)
		})
	}
}

func TestNewTablePool(t *testing.T) {
	pool := Pool{
		Address:         "0xpair",
		ProtocolVersion: ProtocolV2,
		TotalLiquidity:  Amount{Value: 5000},
		Volume24h:       Amount{Value: 200},
		VolumeWeek:      Amount{Value: 900},
		TxCount:         7,
	}

	row := NewTablePool(pool)
	assert.Equal(t, "0xpair", row.Hash)
	assert.Equal(t, V2FeeTier, row.FeeTier, "v2 pairs use the fixed fee tier")
	assert.Equal(t, 5000.0, row.TVL)
	assert.Equal(t, 900.0, row.VolumeWeek)
	assert.InDelta(t, 0.00012, row.Turnover, 1e-12)
}

func TestParsePoolSortField(t *testing.T) {
	field, err := ParsePoolSortField("volume_24h")
	require.NoError(t, err)
	assert.Equal(t, SortVolume24h, field)

	_, err = ParsePoolSortField("fees")
	assert.Error(t, err)
}

func TestSortPools(t *testing.T) {
	pools := []TablePool{
		{Hash: "a", TVL: 100, Volume24h: 5, TxCount: 3},
		{Hash: "b", TVL: 300, Volume24h: 1, TxCount: 3},
		{Hash: "c", TVL: 200, Volume24h: 9, TxCount: 1},
	}

	hashes := func(rows []TablePool) []string {
		out := make([]string, 0, len(rows))
		for _, row := range rows {
			out = append(out, row.Hash)
		}
		return out
	}

	assert.Equal(t, []string{"b", "c", "a"}, hashes(SortPools(pools, DefaultPoolSort)))
	assert.Equal(t, []string{"b", "a", "c"}, hashes(SortPools(pools, PoolSortState{Field: SortVolume24h, Ascending: true})))
	assert.Equal(t, []string{"a", "b", "c"}, hashes(SortPools(pools, PoolSortState{Field: SortTxCount})), "ties keep their order")

	// Input is untouched
	assert.Equal(t, []string{"a", "b", "c"}, hashes(pools))
}
