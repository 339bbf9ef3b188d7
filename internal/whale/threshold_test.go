package whale

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultThresholds(t *testing.T) *Thresholds {
	t.Helper()
	th, err := NewThresholds(map[Asset]decimal.Decimal{
		AssetBTC: decimal.NewFromInt(1_000_000),
		AssetETH: decimal.NewFromInt(500_000),
	})
	require.NoError(t, err)
	return th
}

func TestThresholdsPasses(t *testing.T) {
	th := defaultThresholds(t)

	tests := []struct {
		name  string
		asset Asset
		usd   string
		want  bool
	}{
		{"btc exactly at threshold", AssetBTC, "1000000", true},
		{"btc one cent below", AssetBTC, "999999.99", false},
		{"btc above", AssetBTC, "1400000", true},
		{"eth at threshold", AssetETH, "500000.00", true},
		{"eth below", AssetETH, "499999", false},
		{"asset without threshold", Asset("SOL"), "100000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.Passes(tt.asset, decimal.RequireFromString(tt.usd)))
		})
	}
}

func TestThresholdsSet(t *testing.T) {
	th := defaultThresholds(t)

	require.NoError(t, th.Set(AssetBTC, decimal.NewFromInt(2_000_000)))
	assert.False(t, th.Passes(AssetBTC, decimal.NewFromInt(1_500_000)))
	assert.True(t, th.Passes(AssetBTC, decimal.NewFromInt(2_000_000)))

	err := th.Set(AssetBTC, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeThreshold)
	v, _ := th.Get(AssetBTC)
	assert.True(t, v.Equal(decimal.NewFromInt(2_000_000)), "prior value kept")

	err = th.Set(Asset("DOGE"), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrUnknownAsset)
	_, ok := th.Get(Asset("DOGE"))
	assert.False(t, ok)

	require.NoError(t, th.Set(AssetETH, decimal.Zero))
	assert.True(t, th.Passes(AssetETH, decimal.Zero))

	snap := th.Snapshot()
	assert.Len(t, snap, 2)
	snap[AssetBTC] = decimal.NewFromInt(1)
	v, _ = th.Get(AssetBTC)
	assert.True(t, v.Equal(decimal.NewFromInt(2_000_000)), "snapshot is a copy")
}

func TestNewThresholdsRejectsNegative(t *testing.T) {
	_, err := NewThresholds(map[Asset]decimal.Decimal{AssetBTC: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, ErrNegativeThreshold)
}

func TestThresholdsConcurrentAccess(t *testing.T) {
	th := defaultThresholds(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = th.Set(AssetBTC, decimal.NewFromInt(int64(1_000_000+i)))
		}(i)
		go func() {
			defer wg.Done()
			th.Passes(AssetBTC, decimal.NewFromInt(1_000_025))
		}()
	}
	wg.Wait()

	v, ok := th.Get(AssetBTC)
	require.True(t, ok)
	assert.True(t, v.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)))
}
