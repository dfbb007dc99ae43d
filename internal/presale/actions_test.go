package presale

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tpicks/presale-client/internal/blockchain/solbc"
)

type stubWriter struct {
	sendErr    error
	confirmErr error

	sent      []*solana.Transaction
	signature solana.Signature
}

func (s *stubWriter) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{1}, nil
}

func (s *stubWriter) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if s.sendErr != nil {
		return solana.Signature{}, s.sendErr
	}
	s.sent = append(s.sent, tx)
	return s.signature, nil
}

func (s *stubWriter) WaitForTransactionConfirmation(ctx context.Context, sig solana.Signature) error {
	return s.confirmErr
}

type stubSigner struct {
	wallet *solana.Wallet
}

func newStubSigner() *stubSigner {
	return &stubSigner{wallet: solana.NewWallet()}
}

func (s *stubSigner) SignerKey() solana.PublicKey {
	return s.wallet.PublicKey()
}

func (s *stubSigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.wallet.PublicKey()) {
			return &s.wallet.PrivateKey
		}
		return nil
	})
	return err
}

func (s *stubSigner) SignTransactions(txs []*solana.Transaction) error {
	for _, tx := range txs {
		if err := s.SignTransaction(tx); err != nil {
			return err
		}
	}
	return nil
}

func newTestActions(writer *stubWriter, signer Signer) *Actions {
	addrs, err := DeriveAddresses(testProgramID, testOwner, testMint)
	if err != nil {
		panic(err)
	}
	return NewActions(writer, addrs, signer, zap.NewNop())
}

func TestActionsRequireSigner(t *testing.T) {
	actions := newTestActions(&stubWriter{}, nil)

	_, err := actions.OpenSale(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = actions.Buy(context.Background(), 1_000_000)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = actions.TransferToVault(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestActionsRejectConcurrentIntent(t *testing.T) {
	actions := newTestActions(&stubWriter{}, newStubSigner())
	actions.inFlight.Store(true) // simulate an outstanding operation

	_, err := actions.OpenSale(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	_, err = actions.Buy(context.Background(), 1_000_000)
	assert.ErrorIs(t, err, ErrBusy)

	// Once the outstanding operation completes, intents are accepted.
	actions.inFlight.Store(false)
	_, err = actions.OpenSale(context.Background())
	assert.NoError(t, err)
}

func TestActionsReleaseInFlightFlagAfterFailure(t *testing.T) {
	writer := &stubWriter{sendErr: errors.New("rejected")}
	actions := newTestActions(writer, newStubSigner())

	_, err := actions.CloseSale(context.Background())
	require.Error(t, err)

	writer.sendErr = nil
	_, err = actions.CloseSale(context.Background())
	assert.NoError(t, err)
}

func TestActionsWrapSubmissionErrors(t *testing.T) {
	cause := "Transaction simulation failed: Error processing Instruction 0: " + strings.Repeat("x", 200)
	writer := &stubWriter{sendErr: errors.New(cause)}
	actions := newTestActions(writer, newStubSigner())

	_, err := actions.Buy(context.Background(), 5_000)
	require.Error(t, err)

	var actionErr *ActionFailedError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "buy", actionErr.Intent)
	assert.Len(t, actionErr.Cause, maxCauseLength)
	assert.True(t, strings.HasPrefix(cause, actionErr.Cause))
}

func TestActionsSurfaceConfirmationTimeout(t *testing.T) {
	writer := &stubWriter{confirmErr: solbc.ErrConfirmationTimeout}
	actions := newTestActions(writer, newStubSigner())

	_, err := actions.OpenSale(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestBuySubmitsSignedTransaction(t *testing.T) {
	writer := &stubWriter{signature: solana.Signature{7}}
	signer := newStubSigner()
	actions := newTestActions(writer, signer)

	sig, err := actions.Buy(context.Background(), 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{7}, sig)

	require.Len(t, writer.sent, 1)
	tx := writer.sent[0]
	require.Len(t, tx.Message.Instructions, 1)

	// The buyer pays and signs.
	assert.Equal(t, signer.SignerKey(), tx.Message.AccountKeys[0])
	assert.NotEqual(t, solana.Signature{}, tx.Signatures[0])

	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, program)
}

func TestFundVaultIsPlainTokenTransfer(t *testing.T) {
	writer := &stubWriter{}
	actions := newTestActions(writer, newStubSigner())

	_, err := actions.FundVault(context.Background(), 123)
	require.NoError(t, err)

	require.Len(t, writer.sent, 1)
	tx := writer.sent[0]
	require.Len(t, tx.Message.Instructions, 1)

	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, solana.TokenProgramID, program)
}
