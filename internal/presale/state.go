package presale

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor prefixes the account data with an 8-byte discriminator derived
// from the account's type name.
const discriminatorLength = 8

var (
	presaleDiscriminator = accountDiscriminator("Presale")
	buyerDiscriminator   = accountDiscriminator("BuyerState")
)

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:discriminatorLength]
}

// PresaleState is the on-chain presale record. Field order matches the
// program's account layout; amounts are in native minor units (lamports
// for the base currency, raw token units for the mint).
type PresaleState struct {
	Owner          solana.PublicKey
	TokenMint      solana.PublicKey
	TokenVault     solana.PublicKey
	Wallet         solana.PublicKey
	Rate           uint64
	EntranceFee    uint64
	MaxBuy         uint64
	SoftCap        uint64
	HardCap        uint64
	LamportsRaised uint64
	TokensSold     uint64
	IsOpen         bool
	IsFinalized    bool
	Bump           uint8
}

// BuyerState is the per-buyer contribution record. It is created by the
// program on the first purchase and never deleted.
type BuyerState struct {
	Presale             solana.PublicKey
	Buyer               solana.PublicKey
	ContributedLamports uint64
	TokensPurchased     uint64
	Bump                uint8
}

// DecodePresale decodes raw account data into a PresaleState, verifying
// the anchor discriminator first.
func DecodePresale(data []byte) (*PresaleState, error) {
	payload, err := stripDiscriminator(data, presaleDiscriminator, "presale")
	if err != nil {
		return nil, err
	}
	var st PresaleState
	if err := bin.NewBorshDecoder(payload).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode presale account: %w", err)
	}
	return &st, nil
}

// DecodeBuyer decodes raw account data into a BuyerState.
func DecodeBuyer(data []byte) (*BuyerState, error) {
	payload, err := stripDiscriminator(data, buyerDiscriminator, "buyer state")
	if err != nil {
		return nil, err
	}
	var st BuyerState
	if err := bin.NewBorshDecoder(payload).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode buyer account: %w", err)
	}
	return &st, nil
}

func stripDiscriminator(data, want []byte, kind string) ([]byte, error) {
	if len(data) < discriminatorLength {
		return nil, fmt.Errorf("%s account too short: %d bytes", kind, len(data))
	}
	if !bytes.Equal(data[:discriminatorLength], want) {
		return nil, fmt.Errorf("%s account discriminator mismatch", kind)
	}
	return data[discriminatorLength:], nil
}
