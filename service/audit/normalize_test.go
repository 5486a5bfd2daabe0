package audit

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holder(owner string, raw int64) HolderBalance {
	return HolderBalance{Owner: owner, RawAmount: big.NewInt(raw), Decimals: 6}
}

func TestNormalizeWithPrice(t *testing.T) {
	price := decimal.RequireFromString("2.50")
	holders := []HolderBalance{
		holder("alice", 1_000_000), // 1.0 tokens
		holder("bob", 50_000_000),  // 50.0 tokens
	}

	out, err := Normalize(holders, 6, &price)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "alice", out[0].Owner)
	assert.True(t, out[0].UIAmount.Equal(decimal.NewFromInt(1)))
	require.NotNil(t, out[0].UsdValue)
	assert.True(t, out[0].UsdValue.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, TierUntiered, out[0].Tier)

	require.NotNil(t, out[1].UsdValue)
	assert.True(t, out[1].UsdValue.Equal(decimal.NewFromInt(125)))
	assert.Equal(t, TierShrimp, out[1].Tier)
}

func TestNormalizeWithoutPrice(t *testing.T) {
	out, err := Normalize([]HolderBalance{holder("alice", 1_000_000)}, 6, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Nil(t, out[0].UsdValue)
	assert.Equal(t, TierUntiered, out[0].Tier)
	assert.True(t, out[0].UIAmount.Equal(decimal.NewFromInt(1)))
}

func TestNormalizeZeroDecimals(t *testing.T) {
	price := decimal.NewFromInt(3)
	out, err := Normalize([]HolderBalance{{Owner: "alice", RawAmount: big.NewInt(7), Decimals: 0}}, 0, &price)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.True(t, out[0].UIAmount.Equal(decimal.NewFromInt(7)))
	assert.True(t, out[0].UsdValue.Equal(decimal.NewFromInt(21)))
}

func TestNormalizeInvalidDecimals(t *testing.T) {
	_, err := Normalize(nil, 31, nil)
	assert.ErrorIs(t, err, ErrInvalidDecimals)

	_, err = Normalize(nil, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidDecimals)
}

func TestNormalizeSkipsNilRawAmount(t *testing.T) {
	out, err := Normalize([]HolderBalance{
		{Owner: "broken", RawAmount: nil, Decimals: 6},
		holder("alice", 1_000_000),
	}, 6, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "alice", out[0].Owner)
}

func TestNormalizePreservesBigBalances(t *testing.T) {
	raw, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	out, err := Normalize([]HolderBalance{{Owner: "mega", RawAmount: raw, Decimals: 9}}, 9, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	want := decimal.RequireFromString("123456789012345678901.23456789")
	assert.True(t, out[0].UIAmount.Equal(want), "got %s", out[0].UIAmount)
}
