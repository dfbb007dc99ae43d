package presale

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators, derived the way anchor derives them from
// the instruction names in the program's interface.
var (
	buyDiscriminator            = instructionDiscriminator("buy")
	openSaleDiscriminator       = instructionDiscriminator("open_sale")
	closeSaleDiscriminator      = instructionDiscriminator("close_sale")
	finalizeSaleDiscriminator   = instructionDiscriminator("finalize_sale")
	reopenFinalizeDiscriminator = instructionDiscriminator("reopen_finalize_sale")
	setRateDiscriminator        = instructionDiscriminator("set_rate")
	setEntranceFeeDiscriminator = instructionDiscriminator("set_entrance_fee")
	setMaxBuyDiscriminator      = instructionDiscriminator("set_max_buy")
)

func instructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:discriminatorLength]
}

func instructionData(discriminator []byte, args ...uint64) []byte {
	data := make([]byte, discriminatorLength+8*len(args))
	copy(data, discriminator)
	for i, arg := range args {
		binary.LittleEndian.PutUint64(data[discriminatorLength+8*i:], arg)
	}
	return data
}

// buyInstructionParams carries the per-call accounts of a buy. The
// remaining accounts come from the shared Addresses set.
type buyInstructionParams struct {
	Buyer            solana.PublicKey
	BuyerState       solana.PublicKey
	BeneficiaryToken solana.PublicKey // buyer's ATA for the sale token
	Wallet           solana.PublicKey // owner's proceeds wallet
	Lamports         uint64
}

// createBuyInstruction builds the buy instruction. The buyer is both
// payer and beneficiary; the program creates the buyer state and the
// beneficiary token account on first purchase.
func createBuyInstruction(addrs *Addresses, p *buyInstructionParams) solana.Instruction {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(p.Buyer, true, true),
		solana.NewAccountMeta(p.Buyer, false, false), // beneficiary
		solana.NewAccountMeta(addrs.Presale, true, false),
		solana.NewAccountMeta(addrs.TokenMint, false, false),
		solana.NewAccountMeta(addrs.Vault, true, false),
		solana.NewAccountMeta(p.BeneficiaryToken, true, false),
		solana.NewAccountMeta(p.BuyerState, true, false),
		solana.NewAccountMeta(p.Wallet, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(addrs.ProgramID, accounts, instructionData(buyDiscriminator, p.Lamports))
}

func createOpenSaleInstruction(addrs *Addresses, owner solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(owner, false, true),
		solana.NewAccountMeta(addrs.Presale, true, false),
		solana.NewAccountMeta(addrs.Vault, false, false),
	}
	return solana.NewInstruction(addrs.ProgramID, accounts, instructionData(openSaleDiscriminator))
}

func createCloseSaleInstruction(addrs *Addresses, owner solana.PublicKey) solana.Instruction {
	return ownerOnlyInstruction(addrs, owner, closeSaleDiscriminator)
}

// createFinalizeSaleInstruction sweeps remaining vault tokens to the
// owner's destination token account.
func createFinalizeSaleInstruction(addrs *Addresses, owner, destination solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(addrs.Presale, true, false),
		solana.NewAccountMeta(addrs.Vault, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(addrs.ProgramID, accounts, instructionData(finalizeSaleDiscriminator))
}

func createReopenFinalizeInstruction(addrs *Addresses, owner solana.PublicKey) solana.Instruction {
	return ownerOnlyInstruction(addrs, owner, reopenFinalizeDiscriminator)
}

func createSetRateInstruction(addrs *Addresses, owner solana.PublicKey, rate uint64) solana.Instruction {
	return ownerOnlyInstruction(addrs, owner, setRateDiscriminator, rate)
}

func createSetEntranceFeeInstruction(addrs *Addresses, owner solana.PublicKey, fee uint64) solana.Instruction {
	return ownerOnlyInstruction(addrs, owner, setEntranceFeeDiscriminator, fee)
}

func createSetMaxBuyInstruction(addrs *Addresses, owner solana.PublicKey, maxBuy uint64) solana.Instruction {
	return ownerOnlyInstruction(addrs, owner, setMaxBuyDiscriminator, maxBuy)
}

// ownerOnlyInstruction covers the intents that only touch the presale
// record itself: owner signs, presale record is written.
func ownerOnlyInstruction(addrs *Addresses, owner solana.PublicKey, discriminator []byte, args ...uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(owner, false, true),
		solana.NewAccountMeta(addrs.Presale, true, false),
	}
	return solana.NewInstruction(addrs.ProgramID, accounts, instructionData(discriminator, args...))
}
