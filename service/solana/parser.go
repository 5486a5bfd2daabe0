package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// parseAccountSlice decodes the owner+amount data slice of a token account:
// a 32-byte owner public key followed by an 8-byte little-endian u64 amount.
func parseAccountSlice(data []byte) (owner string, amount uint64, err error) {
	if len(data) < ownerSliceLength {
		return "", 0, fmt.Errorf("account slice too short: %d bytes, want %d", len(data), ownerSliceLength)
	}
	pk := solana.PublicKeyFromBytes(data[:32])
	amount = binary.LittleEndian.Uint64(data[32:40])
	return pk.String(), amount, nil
}
