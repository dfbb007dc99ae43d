package presale

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed tags used by the on-chain program for its PDAs.
const (
	seedPresale = "presale"
	seedVault   = "vault"
	seedBuyer   = "buyer"
)

// Addresses holds the program-derived addresses for one (owner, mint)
// pair. They are deterministic, so a set is computed once at startup and
// shared by the reader and the orchestrator.
type Addresses struct {
	ProgramID solana.PublicKey
	Owner     solana.PublicKey
	TokenMint solana.PublicKey

	Presale     solana.PublicKey
	PresaleBump uint8
	Vault       solana.PublicKey
	VaultBump   uint8
}

// DeriveAddresses computes the presale and vault PDAs for the given
// owner and token mint under programID.
func DeriveAddresses(programID, owner, mint solana.PublicKey) (*Addresses, error) {
	presale, presaleBump, err := deriveAddress(programID, []byte(seedPresale), owner.Bytes(), mint.Bytes())
	if err != nil {
		return nil, fmt.Errorf("presale PDA: %w", err)
	}

	vault, vaultBump, err := deriveAddress(programID, []byte(seedVault), presale.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vault PDA: %w", err)
	}

	return &Addresses{
		ProgramID:   programID,
		Owner:       owner,
		TokenMint:   mint,
		Presale:     presale,
		PresaleBump: presaleBump,
		Vault:       vault,
		VaultBump:   vaultBump,
	}, nil
}

// BuyerState derives the per-buyer record PDA for this presale.
func (a *Addresses) BuyerState(buyer solana.PublicKey) (solana.PublicKey, uint8, error) {
	return deriveAddress(a.ProgramID, []byte(seedBuyer), a.Presale.Bytes(), buyer.Bytes())
}

// deriveAddress is the single derivation primitive: a tag seed plus
// identity seeds. Identity seeds must be exactly 32 bytes.
func deriveAddress(programID solana.PublicKey, tag []byte, identities ...[]byte) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{tag}
	for i, id := range identities {
		if len(id) != solana.PublicKeyLength {
			return solana.PublicKey{}, 0,
				fmt.Errorf("%w: seed %d is %d bytes, want %d", ErrInvalidInput, i+1, len(id), solana.PublicKeyLength)
		}
		seeds = append(seeds, id)
	}

	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return addr, bump, nil
}
