package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/explore"
	"github.com/Sternrassler/explore-client/pkg/graphql"
	"github.com/Sternrassler/explore-client/pkg/metrics"
)

// wethAlias selects the WETH default on token routes that support it.
const wethAlias = "weth"

// maxPages bounds the pages a single pools-from-token request may load.
const maxPages = 10

// maxFirst bounds the pairs a single V2 listing request may ask for.
const maxFirst = 1000

type server struct {
	explorer *explore.Explorer
	redis    *redis.Client
	logger   zerolog.Logger
}

func newRouter(explorer *explore.Explorer, redisClient *redis.Client) *gin.Engine {
	s := &server{
		explorer: explorer,
		redis:    redisClient,
		logger:   log.With().Str("component", "explore-proxy").Logger(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/top-pools", s.topPools)
	v1.GET("/transactions", s.allTransactions)

	pools := v1.Group("/pools/:address")
	pools.GET("", s.poolData)
	pools.GET("/transactions", s.poolTransactions)
	pools.GET("/volume", s.poolVolumeHistory)
	pools.GET("/prices", s.poolPriceHistory)
	pools.GET("/ticks", s.poolTicks)

	tokens := v1.Group("/tokens/:address")
	tokens.GET("", s.token)
	tokens.GET("/market", s.tokenMarket)
	tokens.GET("/price", s.tokenPrice)
	tokens.GET("/tvl", s.tokenTVL)
	tokens.GET("/volume", s.tokenVolume)
	tokens.GET("/transactions", s.tokenTransactions)
	tokens.GET("/pools", s.poolsFromToken)
	tokens.GET("/v2-pairs", s.topV2Pairs)

	protocol := v1.Group("/protocol")
	protocol.GET("/volume", s.protocolVolume)
	protocol.GET("/tvl", s.protocolTVL)

	return router
}

func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status_code", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	}
}

func (s *server) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// ready reports 503 when the configured Redis is unreachable.
func (s *server) ready(c *gin.Context) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			c.String(http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
	}
	c.String(http.StatusOK, "OK")
}

// badRequest aborts with 400.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps an adapter error to a status code.
func fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, graphql.ErrContextCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, graphql.ErrRateLimited):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func reply[T any](c *gin.Context, v *T, err error) {
	switch {
	case err != nil:
		fail(c, err)
	case v == nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusOK, v)
	}
}

func replyList[T any](c *gin.Context, v []T, err error) {
	switch {
	case err != nil:
		fail(c, err)
	case v == nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusOK, v)
	}
}

func chainParam(c *gin.Context) (explore.Chain, error) {
	return explore.ParseChain(c.DefaultQuery("chain", string(explore.ChainEthereum)))
}

func durationParam(c *gin.Context) (explore.HistoryDuration, error) {
	return explore.ParseHistoryDuration(c.Query("duration"))
}

func versionParam(c *gin.Context) (explore.ProtocolVersion, error) {
	switch v := explore.ProtocolVersion(strings.ToUpper(c.DefaultQuery("version", string(explore.ProtocolV3)))); v {
	case explore.ProtocolV2, explore.ProtocolV3:
		return v, nil
	}
	return "", errors.New("version must be V2 or V3")
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

// tokenAddress maps the weth alias to the empty address.
func tokenAddress(c *gin.Context) string {
	address := c.Param("address")
	if strings.EqualFold(address, wethAlias) {
		return ""
	}
	return address
}

func (s *server) topPools(c *gin.Context) {
	pools, err := s.explorer.TopPools(c.Request.Context())
	replyList(c, pools, err)
}

func (s *server) allTransactions(c *gin.Context) {
	txs, err := s.explorer.AllTransactions(c.Request.Context())
	replyList(c, txs, err)
}

func (s *server) poolData(c *gin.Context) {
	chain, err := chainParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	pool, err := s.explorer.PoolData(c.Request.Context(), c.Param("address"), chain)
	reply(c, pool, err)
}

func (s *server) poolTransactions(c *gin.Context) {
	txs, err := s.explorer.PoolTransactions(c.Request.Context(), c.Param("address"))
	reply(c, txs, err)
}

func (s *server) poolChartQuery(c *gin.Context) (explore.PoolChartQuery, error) {
	duration, err := durationParam(c)
	if err != nil {
		return explore.PoolChartQuery{}, err
	}
	version, err := versionParam(c)
	if err != nil {
		return explore.PoolChartQuery{}, err
	}
	return explore.PoolChartQuery{Address: c.Param("address"), Version: version, Duration: duration}, nil
}

func (s *server) poolVolumeHistory(c *gin.Context) {
	q, err := s.poolChartQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	history, err := s.explorer.PoolVolumeHistory(c.Request.Context(), q)
	reply(c, history, err)
}

func (s *server) poolPriceHistory(c *gin.Context) {
	q, err := s.poolChartQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	history, err := s.explorer.PoolPriceHistory(c.Request.Context(), q)
	reply(c, history, err)
}

func (s *server) poolTicks(c *gin.Context) {
	ticks, err := s.explorer.PoolTicks(c.Request.Context(), c.Param("address"))
	replyList(c, ticks, err)
}

func (s *server) token(c *gin.Context) {
	details, err := s.explorer.Token(c.Request.Context(), c.Param("address"))
	reply(c, details, err)
}

func (s *server) tokenMarket(c *gin.Context) {
	market, err := s.explorer.TokenMarket(c.Request.Context(), tokenAddress(c))
	reply(c, market, err)
}

func (s *server) tokenChartQuery(c *gin.Context) (explore.TokenChartQuery, error) {
	chain, err := chainParam(c)
	if err != nil {
		return explore.TokenChartQuery{}, err
	}
	duration, err := durationParam(c)
	if err != nil {
		return explore.TokenChartQuery{}, err
	}
	fallback, _ := strconv.ParseBool(c.Query("fallback"))
	return explore.TokenChartQuery{
		Address:  tokenAddress(c),
		Chain:    chain,
		Duration: duration,
		Fallback: fallback,
	}, nil
}

func (s *server) tokenPrice(c *gin.Context) {
	q, err := s.tokenChartQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	price, err := s.explorer.TokenPrice(c.Request.Context(), q)
	reply(c, price, err)
}

func (s *server) tokenTVL(c *gin.Context) {
	tvl, err := s.explorer.TokenTVL(c.Request.Context(), c.Param("address"))
	reply(c, tvl, err)
}

func (s *server) tokenVolume(c *gin.Context) {
	q, err := s.tokenChartQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	history, err := s.explorer.TokenHistoricalVolumes(c.Request.Context(), q)
	reply(c, history, err)
}

func (s *server) tokenTransactions(c *gin.Context) {
	txs, err := s.explorer.TokenTransactions(c.Request.Context(), c.Param("address"))
	reply(c, txs, err)
}

// poolsFromToken loads `pages` pages of the merged V3/V2 listing and returns
// them sorted by `sort` (default TVL, descending unless asc=true).
func (s *server) poolsFromToken(c *gin.Context) {
	chain, err := chainParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	pages, err := intParam(c, "pages", 1)
	if err != nil {
		badRequest(c, err)
		return
	}
	if pages < 1 || pages > maxPages {
		badRequest(c, errors.New("pages must be between 1 and "+strconv.Itoa(maxPages)))
		return
	}
	state := explore.DefaultPoolSort
	if field := c.Query("sort"); field != "" {
		if state.Field, err = explore.ParsePoolSortField(field); err != nil {
			badRequest(c, err)
			return
		}
	}
	state.Ascending, _ = strconv.ParseBool(c.Query("asc"))

	listing := s.explorer.PoolsFromToken(c.Param("address"), chain)
	for i := 0; i < pages; i++ {
		if err := listing.LoadMore(c.Request.Context(), nil); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, listing.Pools(state))
}

func (s *server) topV2Pairs(c *gin.Context) {
	first, err := intParam(c, "first", explore.DefaultConfig().PageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	if first < 1 || first > maxFirst {
		badRequest(c, errors.New("first must be between 1 and "+strconv.Itoa(maxFirst)))
		return
	}
	var after *explore.V2Cursor
	if raw := c.Query("cursor"); raw != "" {
		if _, err := convert.Decimal(raw); err != nil {
			badRequest(c, errors.New("cursor must be a decimal number"))
			return
		}
		after = &explore.V2Cursor{ReserveUSD: raw, Pair: c.Query("after")}
	}
	pairs, err := s.explorer.TopV2Pairs(c.Request.Context(), c.Param("address"), first, after)
	replyList(c, pairs, err)
}

func (s *server) protocolVolume(c *gin.Context) {
	chain, err := chainParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	duration, err := durationParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := s.explorer.HistoricalProtocolVolume(c.Request.Context(), chain, duration)
	replyList(c, series, err)
}

func (s *server) protocolTVL(c *gin.Context) {
	chain, err := chainParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := s.explorer.DailyProtocolTVL(c.Request.Context(), chain)
	replyList(c, series, err)
}
