package presale

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionDiscriminators(t *testing.T) {
	sum := sha256.Sum256([]byte("global:reopen_finalize_sale"))
	assert.Equal(t, sum[:8], reopenFinalizeDiscriminator)

	// All eight intents get distinct discriminators.
	seen := map[string]bool{}
	for _, d := range [][]byte{
		buyDiscriminator, openSaleDiscriminator, closeSaleDiscriminator,
		finalizeSaleDiscriminator, reopenFinalizeDiscriminator,
		setRateDiscriminator, setEntranceFeeDiscriminator, setMaxBuyDiscriminator,
	} {
		require.Len(t, d, 8)
		assert.False(t, seen[string(d)])
		seen[string(d)] = true
	}
}

func TestBuyInstruction(t *testing.T) {
	addrs, err := DeriveAddresses(testProgramID, testOwner, testMint)
	require.NoError(t, err)

	buyer := solana.NewWallet().PublicKey()
	buyerState, _, err := addrs.BuyerState(buyer)
	require.NoError(t, err)
	beneficiaryToken, _, err := solana.FindAssociatedTokenAddress(buyer, addrs.TokenMint)
	require.NoError(t, err)

	ix := createBuyInstruction(addrs, &buyInstructionParams{
		Buyer:            buyer,
		BuyerState:       buyerState,
		BeneficiaryToken: beneficiaryToken,
		Wallet:           addrs.Owner,
		Lamports:         2_500_000_000,
	})

	assert.Equal(t, addrs.ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, buyDiscriminator, data[:8])
	assert.Equal(t, uint64(2_500_000_000), binary.LittleEndian.Uint64(data[8:]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 11)
	assert.Equal(t, buyer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, addrs.Presale, accounts[2].PublicKey)
	assert.Equal(t, addrs.TokenMint, accounts[3].PublicKey)
	assert.Equal(t, addrs.Vault, accounts[4].PublicKey)
	assert.Equal(t, beneficiaryToken, accounts[5].PublicKey)
	assert.Equal(t, buyerState, accounts[6].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[8].PublicKey)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, accounts[9].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[10].PublicKey)
}

func TestOwnerOnlyInstructionCarriesArgument(t *testing.T) {
	addrs, err := DeriveAddresses(testProgramID, testOwner, testMint)
	require.NoError(t, err)

	ix := createSetRateInstruction(addrs, testOwner, 12_345)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, setRateDiscriminator, data[:8])
	assert.Equal(t, uint64(12_345), binary.LittleEndian.Uint64(data[8:]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, testOwner, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, addrs.Presale, accounts[1].PublicKey)
	assert.True(t, accounts[1].IsWritable)
}

func TestToggleInstructionsHaveNoArguments(t *testing.T) {
	addrs, err := DeriveAddresses(testProgramID, testOwner, testMint)
	require.NoError(t, err)

	for _, ix := range []solana.Instruction{
		createOpenSaleInstruction(addrs, testOwner),
		createCloseSaleInstruction(addrs, testOwner),
		createReopenFinalizeInstruction(addrs, testOwner),
	} {
		data, err := ix.Data()
		require.NoError(t, err)
		assert.Len(t, data, 8)
	}
}
