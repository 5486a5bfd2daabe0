package solana

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountSlice(owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, ownerSliceLength)
	copy(data[:32], owner.Bytes())
	binary.LittleEndian.PutUint64(data[32:40], amount)
	return data
}

func TestParseAccountSlice(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	gotOwner, gotAmount, err := parseAccountSlice(accountSlice(owner, 123456789))
	require.NoError(t, err)
	assert.Equal(t, owner.String(), gotOwner)
	assert.Equal(t, uint64(123456789), gotAmount)
}

func TestParseAccountSliceZeroAmount(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	_, gotAmount, err := parseAccountSlice(accountSlice(owner, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gotAmount)
}

func TestParseAccountSliceMaxAmount(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	_, gotAmount, err := parseAccountSlice(accountSlice(owner, ^uint64(0)))
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), gotAmount)
}

func TestParseAccountSliceTooShort(t *testing.T) {
	_, _, err := parseAccountSlice(make([]byte, 39))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
