package explore

import (
	"context"

	"github.com/Sternrassler/explore-client/pkg/convert"
	"github.com/Sternrassler/explore-client/pkg/graphql"
)

const allTransactionsQuery = `
  query AllTransactions {
    transactions_pools {
      address
      account
      timestamp
      signature
      block_hash
      block_number
      transaction_index
      token0_address
      token0_name
      token0_symbol
      token0_decimals
      token0_quantity
      token1_address
      token1_name
      token1_symbol
      token1_decimals
      token1_quantity
      price_usd
    }
  }
`

// AllTransactions returns the most recent V3 events across all pools. Always
// fetched fresh.
func (e *Explorer) AllTransactions(ctx context.Context) ([]Transaction, error) {
	req := graphql.NewRequest(allTransactionsQuery).CacheControl("no-cache")
	resp, err := e.query(ctx, e.analytics, "all_transactions", req)
	if err != nil {
		return nil, err
	}

	txs, err := transformAllTransactions(resp)
	e.record("all_transactions", txs != nil, err)
	return txs, err
}

func transformAllTransactions(resp *graphql.Response) ([]Transaction, error) {
	items := rows(resp, "transactions_pools")
	if items == nil {
		return nil, nil
	}

	var p convert.Parser
	txs := make([]Transaction, 0, len(items))
	for _, row := range items {
		tx := transaction(&p, row, true)
		tx.ID = convert.SyntheticID("AgnosticTransaction", row.Get("address").String(), string(ChainEthereum))
		tx.Chain = ChainEthereum
		tx.ProtocolVersion = ProtocolV3
		txs = append(txs, tx)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

const tokenTransactionsQuery = `
  query TokenTransactions($token: String!) {
    explore_token(token_address: $token) {
      address
      name
      symbol
      decimals
      price_USD
    }

    explore_token_transactions(token_address: $token) {
      pool_address
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

// TokenTransactions returns the recent V3 events touching a token. Both the
// token and at least one event must be present. Always fetched fresh.
func (e *Explorer) TokenTransactions(ctx context.Context, token string) (*TokenTransactions, error) {
	if token == "" {
		e.skip("token_transactions", "empty token address")
		return nil, nil
	}

	req := graphql.NewRequest(tokenTransactionsQuery).
		Var("token", token).
		CacheControl("no-cache")
	resp, err := e.query(ctx, e.analytics, "token_transactions", req)
	if err != nil {
		return nil, err
	}

	txs, err := transformTokenTransactions(resp)
	e.record("token_transactions", txs != nil, err)
	return txs, err
}

func transformTokenTransactions(resp *graphql.Response) (*TokenTransactions, error) {
	token, ok := first(resp, "explore_token")
	items := rows(resp, "explore_token_transactions")
	if !ok || items == nil {
		return nil, nil
	}

	var p convert.Parser
	address := token.Get("address").String()
	out := &TokenTransactions{
		Token: Token{
			ID:       convert.SyntheticID("AgnosticToken", address),
			Chain:    ChainEthereum,
			Address:  address,
			Symbol:   convert.StripQuotes(token.Get("symbol").String()),
			Decimals: p.Int("decimals", token.Get("decimals").String()),
		},
		Transactions: make([]Transaction, 0, len(items)),
	}
	for _, row := range items {
		out.Transactions = append(out.Transactions, transaction(&p, row, false))
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
