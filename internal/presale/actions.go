package presale

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tpicks/presale-client/internal/blockchain/solbc"
)

// Signer is the injected signing capability, bound to exactly one
// identity. The orchestrator never sees private key material.
type Signer interface {
	SignerKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
	SignTransactions(txs []*solana.Transaction) error
}

// LedgerWriter is the slice of the RPC client the write path needs.
type LedgerWriter interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error
}

// Actions builds, signs, submits and confirms presale instructions. One
// write intent may be in flight per bound actor session; a second intent
// is rejected with ErrBusy rather than queued. Local caches are never
// updated optimistically — callers refresh the Reader after a write.
type Actions struct {
	client LedgerWriter
	addrs  *Addresses
	signer Signer
	logger *zap.Logger

	inFlight atomic.Bool
}

// NewActions creates the orchestrator. The signer may be nil for a
// session that has not connected a wallet yet; every intent then fails
// with ErrNotReady until BindSigner is called.
func NewActions(client LedgerWriter, addrs *Addresses, signer Signer, logger *zap.Logger) *Actions {
	return &Actions{
		client: client,
		addrs:  addrs,
		signer: signer,
		logger: logger.Named("actions"),
	}
}

// BindSigner binds the signing identity for this session.
func (a *Actions) BindSigner(signer Signer) {
	a.signer = signer
}

// Buy contributes lamports to the sale. The purchased tokens go to the
// buyer's associated token account; creating that account on first buy
// is the program's responsibility.
func (a *Actions) Buy(ctx context.Context, lamports uint64) (solana.Signature, error) {
	const intent = "buy"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()

	buyer := a.signer.SignerKey()
	buyerState, _, err := a.addrs.BuyerState(buyer)
	if err != nil {
		return solana.Signature{}, err
	}
	beneficiaryToken, _, err := solana.FindAssociatedTokenAddress(buyer, a.addrs.TokenMint)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := createBuyInstruction(a.addrs, &buyInstructionParams{
		Buyer:            buyer,
		BuyerState:       buyerState,
		BeneficiaryToken: beneficiaryToken,
		Wallet:           a.addrs.Owner,
		Lamports:         lamports,
	})
	return a.submit(ctx, intent, ix)
}

// OpenSale sets the sale open. Owner-only; redundancy is not pre-checked
// client-side — the program decides whether an already-open sale no-ops
// or rejects.
func (a *Actions) OpenSale(ctx context.Context) (solana.Signature, error) {
	const intent = "open_sale"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.submit(ctx, intent, createOpenSaleInstruction(a.addrs, a.signer.SignerKey()))
}

// CloseSale sets the sale closed. Owner-only.
func (a *Actions) CloseSale(ctx context.Context) (solana.Signature, error) {
	const intent = "close_sale"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.submit(ctx, intent, createCloseSaleInstruction(a.addrs, a.signer.SignerKey()))
}

// FinalizeSale sweeps proceeds and remaining vault tokens to the owner.
func (a *Actions) FinalizeSale(ctx context.Context) (solana.Signature, error) {
	const intent = "finalize_sale"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()

	owner := a.signer.SignerKey()
	destination, _, err := solana.FindAssociatedTokenAddress(owner, a.addrs.TokenMint)
	if err != nil {
		return solana.Signature{}, err
	}
	return a.submit(ctx, intent, createFinalizeSaleInstruction(a.addrs, owner, destination))
}

// ReopenFinalizeSale clears the finalized flag. Owner-only.
func (a *Actions) ReopenFinalizeSale(ctx context.Context) (solana.Signature, error) {
	const intent = "reopen_finalize_sale"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.submit(ctx, intent, createReopenFinalizeInstruction(a.addrs, a.signer.SignerKey()))
}

// SetRate replaces the token-per-lamport conversion rate.
func (a *Actions) SetRate(ctx context.Context, rate uint64) (solana.Signature, error) {
	const intent = "set_rate"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.submit(ctx, intent, createSetRateInstruction(a.addrs, a.signer.SignerKey(), rate))
}

// SetEntranceFee replaces the minimum contribution, in lamports.
func (a *Actions) SetEntranceFee(ctx context.Context, fee uint64) (solana.Signature, error) {
	const intent = "set_entrance_fee"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.submit(ctx, intent, createSetEntranceFeeInstruction(a.addrs, a.signer.SignerKey(), fee))
}

// SetMaxBuy replaces the per-transaction cap, in lamports.
func (a *Actions) SetMaxBuy(ctx context.Context, maxBuy uint64) (solana.Signature, error) {
	const intent = "set_max_buy"
	release, err := a.acquire(intent)
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.submit(ctx, intent, createSetMaxBuyInstruction(a.addrs, a.signer.SignerKey(), maxBuy))
}

// FundVault transfers tokens from the signer's associated token account
// to the vault. This is a plain SPL transfer, not a presale-program
// instruction.
func (a *Actions) FundVault(ctx context.Context, amount uint64) (solana.Signature, error) {
	release, err := a.acquire("fund_vault")
	if err != nil {
		return solana.Signature{}, err
	}
	defer release()
	return a.TransferToVault(ctx, amount)
}

// TransferToVault is the direct funding path used by the reconciliation
// workflow. It bypasses the in-flight guard (the workflow is strictly
// sequential) but still requires a bound signer.
func (a *Actions) TransferToVault(ctx context.Context, amount uint64) (solana.Signature, error) {
	const intent = "fund_vault"
	if a.signer == nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", intent, ErrNotReady)
	}

	owner := a.signer.SignerKey()
	source, _, err := solana.FindAssociatedTokenAddress(owner, a.addrs.TokenMint)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := token.NewTransferInstruction(amount, source, a.addrs.Vault, owner, nil).Build()
	return a.submit(ctx, intent, ix)
}

// acquire performs the uniform precondition checks for an intent and
// returns the release for the in-flight flag.
func (a *Actions) acquire(intent string) (func(), error) {
	if a.signer == nil {
		return nil, fmt.Errorf("%s: %w", intent, ErrNotReady)
	}
	if !a.inFlight.CompareAndSwap(false, true) {
		a.logger.Warn("intent rejected, another operation in progress", zap.String("intent", intent))
		return nil, fmt.Errorf("%s: %w", intent, ErrBusy)
	}
	return func() { a.inFlight.Store(false) }, nil
}

// submit assembles a transaction around the instruction, signs it,
// sends it and waits for confirmed commitment. Failures surface as
// ActionFailedError with a truncated cause, or ErrTimeout when the
// ledger did not confirm in time; nothing is retried here.
func (a *Actions) submit(ctx context.Context, intent string, instructions ...solana.Instruction) (solana.Signature, error) {
	opID := uuid.NewString()
	log := a.logger.With(zap.String("intent", intent), zap.String("op_id", opID))

	blockhash, err := a.client.GetRecentBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, a.classify(intent, fmt.Errorf("get recent blockhash: %w", err))
	}

	payer := a.signer.SignerKey()
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, a.classify(intent, fmt.Errorf("build transaction: %w", err))
	}

	if err := a.signer.SignTransaction(tx); err != nil {
		return solana.Signature{}, a.classify(intent, fmt.Errorf("sign transaction: %w", err))
	}

	sig, err := a.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, a.classify(intent, err)
	}
	log.Debug("transaction submitted", zap.String("signature", sig.String()))

	if err := a.client.WaitForTransactionConfirmation(ctx, sig); err != nil {
		return solana.Signature{}, a.classify(intent, err)
	}

	log.Info("transaction confirmed", zap.String("signature", sig.String()))
	return sig, nil
}

func (a *Actions) classify(intent string, err error) error {
	if errors.Is(err, solbc.ErrConfirmationTimeout) {
		return fmt.Errorf("%s: %w", intent, ErrTimeout)
	}
	return newActionFailed(intent, err)
}
