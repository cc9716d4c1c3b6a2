package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unifiedprice/internal/config"
	"unifiedprice/internal/resolve"
)

type fakeResolver struct {
	prices map[string]string

	mu      sync.Mutex
	got     []resolve.Request
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeResolver) Resolve(_ context.Context, req resolve.Request) *resolve.UnifiedPrice {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()

	v, ok := f.prices[req.Code]
	if !ok {
		return nil
	}
	return &resolve.UnifiedPrice{Price: decimal.MustParse(v), Currency: "USD", Date: req.Date}
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	// Arrange
	res := &fakeResolver{prices: map[string]string{"AAPL": "189.84", "BTC": "67187.12"}}
	codes := []string{"AAPL", "BTC", "nope", "AAPL", "ETH", "000001"}

	// Act
	out := fetchAll(t.Context(), res, codes, "2024-01-02", "USD", 2)

	// Assert
	require.Len(t, out, 5)
	require.Equal(t, "189.84", out["AAPL"].Price.String())
	require.Equal(t, "67187.12", out["BTC"].Price.String())
	require.Nil(t, out["nope"])
	require.Contains(t, out, "ETH")
	require.Len(t, res.got, 5)
	require.LessOrEqual(t, res.maxSeen.Load(), int32(2))
	for _, req := range res.got {
		require.Equal(t, "2024-01-02", req.Date)
		require.Equal(t, "USD", req.TargetCurrency)
	}
}

func TestFetchAll_DuplicateKeepsPrice(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 2, 4} {
		res := &fakeResolver{prices: map[string]string{"AAPL": "189.84"}}

		out := fetchAll(t.Context(), res, []string{"AAPL", "X", "AAPL"}, "", "", limit)

		require.Len(t, out, 2, "limit=%d", limit)
		require.NotNil(t, out["AAPL"], "limit=%d", limit)
		require.Equal(t, "189.84", out["AAPL"].Price.String())
		require.Nil(t, out["X"])
		require.Len(t, res.got, 2, "limit=%d", limit)
	}
}

func TestRootCmd(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{prices: map[string]string{"AAPL": "189.84"}}
	cmd := newRootCmd(func(config.Config, *zap.Logger) priceResolver { return res })
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"AAPL", "nope", "--currency", "usd", "--config", filepath.Join(t.TempDir(), "none.json")})

	require.NoError(t, cmd.ExecuteContext(t.Context()))

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.JSONEq(t, `{"price":189.84,"currency":"USD"}`, string(got["AAPL"]))
	require.Equal(t, "null", string(got["nope"]))
}

func TestRootCmd_RequiresCode(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd(func(config.Config, *zap.Logger) priceResolver { return &fakeResolver{} })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.Error(t, cmd.ExecuteContext(t.Context()))
}

func TestRootCmd_BadConcurrency(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd(func(config.Config, *zap.Logger) priceResolver { return &fakeResolver{} })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"AAPL", "--concurrency", "0"})

	require.ErrorContains(t, cmd.ExecuteContext(t.Context()), "concurrency")
}
