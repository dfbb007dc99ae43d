// Package solbc is a thin adapter over the Solana JSON-RPC client. It
// exposes only the calls the presale client needs: account reads, a token
// balance read, transaction submission and confirmation.
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var (
	// ErrAccountNotFound means the requested account does not exist on
	// the ledger at the queried commitment level.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfirmationTimeout means the transaction was submitted but did
	// not reach the requested commitment within the deadline.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// IsAccountNotFoundError reports whether err indicates a missing account,
// either our sentinel or the RPC layer's own not-found error.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// Client wraps an rpc.Client with logging and error classification.
type Client struct {
	rpc            *rpc.Client
	logger         *zap.Logger
	confirmTimeout time.Duration
}

// NewClient creates a client against a single RPC endpoint. Network
// selection is the caller's concern.
func NewClient(rpcURL string, confirmTimeout time.Duration, logger *zap.Logger) *Client {
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	return &Client{
		rpc:            rpc.New(rpcURL),
		logger:         logger.Named("solbc-client"),
		confirmTimeout: confirmTimeout,
	}
}

// GetAccountData returns the raw data of an account at confirmed
// commitment, or ErrAccountNotFound if the account does not exist.
func (c *Client) GetAccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, ErrAccountNotFound
		}
		c.logger.Debug("GetAccountData error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return result.Value.Data.GetBinary(), nil
}

// GetTokenBalance returns the raw token amount held by a token account.
// A missing account yields zero with ErrAccountNotFound so callers can
// decide whether absence is a valid state.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return 0, ErrAccountNotFound
		}
		c.logger.Debug("GetTokenBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return 0, err
	}
	if result == nil || result.Value == nil {
		return 0, ErrAccountNotFound
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// GetRecentBlockhash returns the latest blockhash at finalized commitment.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction with preflight at
// confirmed commitment.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses returns the confirmation statuses for signatures.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Warn("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// WaitForTransactionConfirmation polls the signature status until it
// reaches at least confirmed commitment or the client's deadline passes.
// Polling backs off between attempts; the write itself is never resent.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	check := func() (struct{}, error) {
		statuses, err := c.GetSignatureStatuses(ctx, signature)
		if err != nil {
			return struct{}{}, err
		}
		if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("transaction failed on chain: %v", status.Err))
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return struct{}{}, nil
			}
		}
		return struct{}{}, errors.New("not yet confirmed")
	}

	_, err := backoff.Retry(ctx, check,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.confirmTimeout),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		}
		return err
	}
	return nil
}
