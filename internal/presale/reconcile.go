package presale

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// LifecycleState is the workflow's derived view of the presale record.
// It is computed from the two flags, never stored.
type LifecycleState string

const (
	// Finalized: proceeds swept, sale cannot accept contributions.
	Finalized LifecycleState = "finalized"
	// OpenLive: sale accepting contributions.
	OpenLive LifecycleState = "open"
	// ClosedPending: not finalized, not open.
	ClosedPending LifecycleState = "closed"
)

// Lifecycle derives the workflow state from the record's flags. The
// finalized flag wins: the program is expected to forbid opening a
// finalized sale, which is why the workflow reopens finalize first.
func (s *PresaleState) Lifecycle() LifecycleState {
	switch {
	case s.IsFinalized:
		return Finalized
	case s.IsOpen:
		return OpenLive
	default:
		return ClosedPending
	}
}

// StateReader is the slice of the Reader the workflow consumes.
type StateReader interface {
	RefreshPresale(ctx context.Context) (*PresaleState, error)
	RefreshVaultBalance(ctx context.Context) (uint64, error)
	RefreshOwnerBalance(ctx context.Context) (uint64, error)
}

// SaleActions is the slice of the orchestrator the workflow consumes.
type SaleActions interface {
	ReopenFinalizeSale(ctx context.Context) (solana.Signature, error)
	OpenSale(ctx context.Context) (solana.Signature, error)
	TransferToVault(ctx context.Context, amount uint64) (solana.Signature, error)
}

// StepResult records one mutating call the workflow made.
type StepResult struct {
	Step      string
	Signature solana.Signature
}

// Outcome is the workflow's report: the final observed flags and vault
// balance, the mutations performed, and any unresolved warnings.
type Outcome struct {
	IsOpen       bool
	IsFinalized  bool
	VaultBalance uint64
	Executed     []StepResult
	Warnings     []string
}

// Workflow drives a presale back to "open and funded". It keeps no state
// of its own: every step re-reads the ledger before acting, so the
// procedure is safe to re-run from the top after any partial failure,
// and a second consecutive run on a reconciled presale mutates nothing.
type Workflow struct {
	reader  StateReader
	actions SaleActions
	// fundingCeiling caps a single funding transfer, in native token
	// units.
	fundingCeiling uint64
	logger         *zap.Logger
}

// NewWorkflow creates a reconciliation workflow.
func NewWorkflow(reader StateReader, actions SaleActions, fundingCeiling uint64, logger *zap.Logger) *Workflow {
	return &Workflow{
		reader:         reader,
		actions:        actions,
		fundingCeiling: fundingCeiling,
		logger:         logger.Named("reconcile"),
	}
}

// Run executes the procedure top to bottom. The first failing remote
// call aborts the rest; the error names the step that failed.
func (w *Workflow) Run(ctx context.Context) (*Outcome, error) {
	outcome := &Outcome{}

	// Step 1: clear the finalized flag if set.
	state, err := w.reader.RefreshPresale(ctx)
	if err != nil {
		return outcome, fmt.Errorf("inspect presale: %w", err)
	}
	w.logger.Info("observed presale",
		zap.Bool("is_open", state.IsOpen),
		zap.Bool("is_finalized", state.IsFinalized),
		zap.String("lifecycle", string(state.Lifecycle())),
		zap.Uint64("lamports_raised", state.LamportsRaised),
		zap.Uint64("tokens_sold", state.TokensSold))

	if state.IsFinalized {
		sig, err := w.actions.ReopenFinalizeSale(ctx)
		if err != nil {
			return outcome, fmt.Errorf("reopen finalize: %w", err)
		}
		outcome.record("reopen_finalize_sale", sig)
		w.logger.Info("finalize status reopened", zap.String("signature", sig.String()))
	}

	// Step 2: fund the vault if it is empty and the owner has tokens.
	vaultBalance, err := w.reader.RefreshVaultBalance(ctx)
	if err != nil {
		return outcome, fmt.Errorf("read vault balance: %w", err)
	}
	ownerBalance, err := w.reader.RefreshOwnerBalance(ctx)
	if err != nil {
		return outcome, fmt.Errorf("read owner balance: %w", err)
	}

	switch {
	case vaultBalance > 0:
		w.logger.Info("vault already funded", zap.Uint64("vault_balance", vaultBalance))
	case ownerBalance > 0:
		amount := min(ownerBalance, w.fundingCeiling)
		sig, err := w.actions.TransferToVault(ctx, amount)
		if err != nil {
			return outcome, fmt.Errorf("fund vault: %w", err)
		}
		outcome.record("fund_vault", sig)
		w.logger.Info("vault funded",
			zap.Uint64("amount", amount),
			zap.String("signature", sig.String()))
	default:
		warning := "vault is empty and owner holds no tokens to fund it"
		outcome.Warnings = append(outcome.Warnings, warning)
		w.logger.Warn(warning)
	}

	// Step 3: open the sale if it is closed.
	state, err = w.reader.RefreshPresale(ctx)
	if err != nil {
		return outcome, fmt.Errorf("re-inspect presale: %w", err)
	}
	if !state.IsOpen {
		sig, err := w.actions.OpenSale(ctx)
		if err != nil {
			return outcome, fmt.Errorf("open sale: %w", err)
		}
		outcome.record("open_sale", sig)
		w.logger.Info("sale opened", zap.String("signature", sig.String()))
	}

	// Step 4: report the final observed state.
	state, err = w.reader.RefreshPresale(ctx)
	if err != nil {
		return outcome, fmt.Errorf("confirm final state: %w", err)
	}
	vaultBalance, err = w.reader.RefreshVaultBalance(ctx)
	if err != nil {
		return outcome, fmt.Errorf("confirm vault balance: %w", err)
	}

	outcome.IsOpen = state.IsOpen
	outcome.IsFinalized = state.IsFinalized
	outcome.VaultBalance = vaultBalance
	w.logger.Info("reconciliation complete",
		zap.Bool("is_open", outcome.IsOpen),
		zap.Bool("is_finalized", outcome.IsFinalized),
		zap.Uint64("vault_balance", outcome.VaultBalance),
		zap.Int("mutations", len(outcome.Executed)))
	return outcome, nil
}

func (o *Outcome) record(step string, sig solana.Signature) {
	o.Executed = append(o.Executed, StepResult{Step: step, Signature: sig})
}
