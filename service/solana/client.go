package solana

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/okdsgnr/Strata/service/audit"
	"github.com/okdsgnr/Strata/service/metrics"
)

// SPL token programs whose accounts hold mint balances. Token-2022 accounts
// carry extensions after the base layout, but the fields we slice out sit at
// the same offsets in both programs.
var tokenPrograms = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
	solana.MustPublicKeyFromBase58("TokenzQdBNbLqP6vGx8gE3YgH1W4GQhS3dY9SxxWJ6t"),
}

// Token account layout: mint (32 bytes), owner (32 bytes), amount (8 bytes
// little-endian u64). We memcmp on the mint at offset 0 and slice out
// owner+amount.
const (
	mintFieldOffset  = 0
	ownerSliceOffset = 32
	ownerSliceLength = 40 // owner (32) + amount (8)
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana
// nodes.
type RPCClient interface {
	GetTokenSupply(
		ctx context.Context,
		mint solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenSupplyResult, error)

	GetProgramAccountsWithOpts(
		ctx context.Context,
		program solana.PublicKey,
		opts *rpc.GetProgramAccountsOpts,
	) (rpc.GetProgramAccountsResult, error)
}

// Client fetches holder sets and supply figures from Solana RPC. It
// implements the engine's BalanceSource and SupplySource contracts.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g. rpc host)
}

// NewClient creates a new Solana client. The endpoint parameter is used for
// metrics labeling. If m is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// FetchSupply returns the mint's total raw supply and decimal precision.
func (c *Client) FetchSupply(ctx context.Context, mint string) (audit.Supply, error) {
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return audit.Supply{}, fmt.Errorf("parse mint %q: %w", mint, err)
	}

	start := time.Now()
	result, err := c.rpc.GetTokenSupply(ctx, pk, rpc.CommitmentConfirmed)
	c.recordCall("GetTokenSupply", err, time.Since(start))
	if err != nil {
		return audit.Supply{}, fmt.Errorf("get token supply for %s: %w", mint, err)
	}
	if result == nil || result.Value == nil {
		return audit.Supply{}, fmt.Errorf("empty token supply response for %s", mint)
	}

	raw, ok := new(big.Int).SetString(result.Value.Amount, 10)
	if !ok {
		return audit.Supply{}, fmt.Errorf("invalid supply amount %q for %s", result.Value.Amount, mint)
	}

	c.logger.Debug("fetched token supply",
		"mint", mint,
		"amount", result.Value.Amount,
		"decimals", result.Value.Decimals,
	)
	return audit.Supply{RawAmount: raw, Decimals: result.Value.Decimals}, nil
}

// FetchAllHolders returns the complete holder set for a mint, deduplicated
// by owner with balances summed across token accounts. Accounts from both
// the original token program and Token-2022 are included; zero balances are
// dropped.
func (c *Client) FetchAllHolders(ctx context.Context, mint string) ([]audit.HolderBalance, error) {
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint %q: %w", mint, err)
	}

	// Decimals ride along on every HolderBalance; one supply call covers
	// the whole set.
	supply, err := c.FetchSupply(ctx, mint)
	if err != nil {
		return nil, err
	}

	byOwner := make(map[string]*big.Int)
	var accounts int
	for _, program := range tokenPrograms {
		n, err := c.accumulateProgramAccounts(ctx, program, pk, byOwner)
		if err != nil {
			return nil, err
		}
		accounts += n
	}

	if c.metrics != nil {
		c.metrics.RecordHolderAccounts(c.endpoint, float64(accounts))
	}
	c.logger.Debug("fetched token accounts",
		"mint", mint,
		"accounts", accounts,
		"owners", len(byOwner),
	)

	holders := make([]audit.HolderBalance, 0, len(byOwner))
	for owner, amount := range byOwner {
		holders = append(holders, audit.HolderBalance{
			Owner:     owner,
			RawAmount: amount,
			Decimals:  supply.Decimals,
		})
	}
	return holders, nil
}

// accumulateProgramAccounts fetches all token accounts for the mint under
// one program and folds their balances into byOwner. Returns the number of
// accounts processed.
func (c *Client) accumulateProgramAccounts(ctx context.Context, program, mint solana.PublicKey, byOwner map[string]*big.Int) (int, error) {
	sliceOffset := uint64(ownerSliceOffset)
	sliceLength := uint64(ownerSliceLength)
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		DataSlice: &rpc.DataSlice{
			Offset: &sliceOffset,
			Length: &sliceLength,
		},
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: mintFieldOffset,
					Bytes:  mint.Bytes(),
				},
			},
		},
	}

	start := time.Now()
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, opts)
	c.recordCall("GetProgramAccounts", err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("get program accounts for %s under %s: %w", mint, program, err)
	}

	processed := 0
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		owner, amount, err := parseAccountSlice(acc.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn("skipping malformed token account",
				"account", acc.Pubkey.String(),
				"error", err,
			)
			continue
		}
		processed++
		if amount == 0 {
			continue
		}
		prev, ok := byOwner[owner]
		if !ok {
			prev = new(big.Int)
			byOwner[owner] = prev
		}
		prev.Add(prev, new(big.Int).SetUint64(amount))
	}
	return processed, nil
}

func (c *Client) recordCall(method string, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, d.Seconds())
}
