package explore

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/explore-client/internal/testutil"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

type testBackends struct {
	analytics *testutil.MockGraphQL
	assets    *testutil.MockGraphQL
	indexer   *testutil.MockGraphQL
}

func newClient(t *testing.T, name string, mock *testutil.MockGraphQL) *graphql.Client {
	t.Helper()

	cfg := graphql.DefaultConfig(name, mock.URL())
	cfg.MaxAttempts = 1
	cfg.Deduplicate = false
	client, err := graphql.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// newTestExplorer wires an explorer to mock backends. withOptional adds the
// assets and indexer backends.
func newTestExplorer(t *testing.T, withOptional bool) (*Explorer, *testBackends) {
	t.Helper()

	mocks := &testBackends{analytics: testutil.NewMockGraphQL()}
	t.Cleanup(mocks.analytics.Close)

	backends := Backends{Analytics: newClient(t, "analytics", mocks.analytics)}
	if withOptional {
		mocks.assets = testutil.NewMockGraphQL()
		mocks.indexer = testutil.NewMockGraphQL()
		t.Cleanup(mocks.assets.Close)
		t.Cleanup(mocks.indexer.Close)
		backends.Assets = newClient(t, "assets", mocks.assets)
		backends.Indexer = newClient(t, "indexer", mocks.indexer)
	}

	cfg := DefaultConfig()
	cfg.TickPollInterval = 20 * time.Millisecond
	explorer, err := New(backends, cfg)
	require.NoError(t, err)
	return explorer, mocks
}

// response builds a decoded response from a data document.
func response(data string) *graphql.Response {
	return &graphql.Response{Data: json.RawMessage(data)}
}

func TestNew_RequiresAnalytics(t *testing.T) {
	_, err := New(Backends{}, DefaultConfig())
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()

	explorer, err := New(Backends{Analytics: newClient(t, "analytics", mock)}, Config{})
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, explorer.config.TickPollInterval)
	require.Equal(t, 20, explorer.config.PageSize)
}

var declaredOperation = regexp.MustCompile(`\bquery\s+(\w+)`)

func TestAdapters_SendDeclaredOperationName(t *testing.T) {
	explorer, mocks := newTestExplorer(t, true)
	mocks.indexer.SetField("asToken0", `[`+pairA+`]`)
	mocks.indexer.SetField("pairDayDatas", `[]`)
	ctx := context.Background()

	// Results are irrelevant here, only the requests each adapter sends.
	_, _ = explorer.TokenTVL(ctx, "0xa")
	_, _ = explorer.TokenHistoricalVolumes(ctx, TokenChartQuery{Address: "0xa", Chain: ChainEthereum, Duration: DurationDay})
	_, _ = explorer.TokenPrice(ctx, TokenChartQuery{Address: "0xa", Chain: ChainEthereum, Duration: DurationDay})
	_, _ = explorer.TokenMarket(ctx, "0xa")
	_, _ = explorer.Token(ctx, "0xa")
	_, _ = explorer.DailyProtocolTVL(ctx, ChainEthereum)
	_, _ = explorer.HistoricalProtocolVolume(ctx, ChainEthereum, DurationDay)
	_, _ = explorer.TopPools(ctx)
	_, _ = explorer.PoolData(ctx, "0xpool", ChainEthereum)
	_, _ = explorer.PoolTransactions(ctx, "0xpool")
	_, _ = explorer.PoolVolumeHistory(ctx, PoolChartQuery{Address: "0xpool", Version: ProtocolV3, Duration: DurationDay})
	_, _ = explorer.TopPoolsFromToken(ctx, "0xa", ChainEthereum, 20, 0)
	_, _ = explorer.AllTransactions(ctx)
	_, _ = explorer.TokenTransactions(ctx, "0xa")
	_, _ = explorer.TopV2Pairs(ctx, "0xa", 20, nil)
	_, _ = explorer.TopV2Pairs(ctx, "0xa", 20, &V2Cursor{ReserveUSD: "5000", Pair: "0xpaira"})

	var sent int
	for _, mock := range []*testutil.MockGraphQL{mocks.analytics, mocks.assets, mocks.indexer} {
		for _, req := range mock.Requests() {
			m := declaredOperation.FindStringSubmatch(req.Query)
			require.NotNil(t, m, "document declares a named query: %s", req.Query)
			assert.Equal(t, m[1], req.OperationName)
			sent++
		}
	}
	assert.Greater(t, sent, 10)

	operations := make(map[string]bool)
	for _, req := range mocks.indexer.Requests() {
		operations[req.OperationName] = true
	}
	assert.True(t, operations["TopV2PairsAfter"], "cursor pages name their own operation")
}
