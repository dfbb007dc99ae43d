// Command reconcile is the operator batch procedure: it inspects the
// presale on the ledger and drives it back to "open and funded",
// printing each observed field and each resulting transaction signature.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tpicks/presale-client/internal/blockchain/solbc"
	"github.com/tpicks/presale-client/internal/config"
	"github.com/tpicks/presale-client/internal/logger"
	"github.com/tpicks/presale-client/internal/presale"
	"github.com/tpicks/presale-client/internal/wallet"
)

const configPath = "configs/reconcile.json"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reconcile failed:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogFile, cfg.Development)
	defer log.Sync()

	w, err := wallet.LoadKeypairFile(cfg.KeypairPath)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	fmt.Println("Wallet:", w.PublicKey)

	addrs, err := presale.DeriveAddresses(cfg.ProgramID(), cfg.Owner(), cfg.Mint())
	if err != nil {
		return fmt.Errorf("derive addresses: %w", err)
	}
	fmt.Println("Presale PDA:", addrs.Presale)
	fmt.Println("Vault PDA:", addrs.Vault)

	client := solbc.NewClient(cfg.RPCURL, cfg.ConfirmTimeout(), log)
	reader, err := presale.NewReader(client, addrs, log)
	if err != nil {
		return fmt.Errorf("create reader: %w", err)
	}
	actions := presale.NewActions(client, addrs, w, log)

	state, err := reader.RefreshPresale(ctx)
	if err != nil {
		return fmt.Errorf("fetch presale: %w", err)
	}
	printState("Current State", state)

	workflow := presale.NewWorkflow(reader, actions, cfg.FundingCeiling(), log)
	outcome, err := workflow.Run(ctx)
	for _, step := range outcome.Executed {
		fmt.Printf("%s TX: %s\n", step.Step, step.Signature)
	}
	for _, warning := range outcome.Warnings {
		fmt.Println("WARNING:", warning)
	}
	if err != nil {
		return err
	}

	fmt.Println("\n--- Final State ---")
	fmt.Println("Is Open:", outcome.IsOpen)
	fmt.Println("Is Finalized:", outcome.IsFinalized)
	fmt.Println("Vault balance:", outcome.VaultBalance)

	log.Info("done",
		zap.Bool("is_open", outcome.IsOpen),
		zap.Bool("is_finalized", outcome.IsFinalized))
	return nil
}

func printState(title string, state *presale.PresaleState) {
	fmt.Println("\n---", title, "---")
	fmt.Println("Owner:", state.Owner)
	fmt.Println("Wallet:", state.Wallet)
	fmt.Println("Is Open:", state.IsOpen)
	fmt.Println("Is Finalized:", state.IsFinalized)
	fmt.Println("Rate:", state.Rate)
	fmt.Println("Entrance Fee:", state.EntranceFee)
	fmt.Println("Max Buy:", state.MaxBuy)
	fmt.Println("Soft Cap:", state.SoftCap)
	fmt.Println("Hard Cap:", state.HardCap)
	fmt.Println("Lamports Raised:", state.LamportsRaised)
	fmt.Println("Tokens Sold:", state.TokensSold)
}
