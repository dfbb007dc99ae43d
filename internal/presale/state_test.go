package presale

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePresaleAccount(st *PresaleState) []byte {
	data := append([]byte{}, presaleDiscriminator...)
	data = append(data, st.Owner.Bytes()...)
	data = append(data, st.TokenMint.Bytes()...)
	data = append(data, st.TokenVault.Bytes()...)
	data = append(data, st.Wallet.Bytes()...)
	for _, v := range []uint64{st.Rate, st.EntranceFee, st.MaxBuy, st.SoftCap, st.HardCap, st.LamportsRaised, st.TokensSold} {
		data = binary.LittleEndian.AppendUint64(data, v)
	}
	data = append(data, boolByte(st.IsOpen), boolByte(st.IsFinalized), st.Bump)
	return data
}

func encodeBuyerAccount(st *BuyerState) []byte {
	data := append([]byte{}, buyerDiscriminator...)
	data = append(data, st.Presale.Bytes()...)
	data = append(data, st.Buyer.Bytes()...)
	data = binary.LittleEndian.AppendUint64(data, st.ContributedLamports)
	data = binary.LittleEndian.AppendUint64(data, st.TokensPurchased)
	data = append(data, st.Bump)
	return data
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func TestDecodePresale(t *testing.T) {
	want := &PresaleState{
		Owner:          testOwner,
		TokenMint:      testMint,
		TokenVault:     solana.NewWallet().PublicKey(),
		Wallet:         testOwner,
		Rate:           1000,
		EntranceFee:    10_000_000,
		MaxBuy:         5_000_000_000,
		SoftCap:        100_000_000_000,
		HardCap:        500_000_000_000,
		LamportsRaised: 42_000_000_000,
		TokensSold:     42_000_000_000_000,
		IsOpen:         true,
		IsFinalized:    false,
		Bump:           254,
	}

	got, err := DecodePresale(encodePresaleAccount(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodePresaleRejectsWrongDiscriminator(t *testing.T) {
	data := encodeBuyerAccount(&BuyerState{Presale: testOwner, Buyer: testMint})
	_, err := DecodePresale(data)
	assert.ErrorContains(t, err, "discriminator mismatch")
}

func TestDecodePresaleRejectsShortAccount(t *testing.T) {
	_, err := DecodePresale([]byte{1, 2, 3})
	assert.ErrorContains(t, err, "too short")
}

func TestDecodeBuyer(t *testing.T) {
	want := &BuyerState{
		Presale:             solana.NewWallet().PublicKey(),
		Buyer:               solana.NewWallet().PublicKey(),
		ContributedLamports: 250_000_000,
		TokensPurchased:     250_000_000_000,
		Bump:                255,
	}

	got, err := DecodeBuyer(encodeBuyerAccount(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
