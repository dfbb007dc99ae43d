package presale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tpicks/presale-client/internal/blockchain/solbc"
)

// LedgerReader is the read-only slice of the RPC client the Reader
// needs. It never requires a signer.
type LedgerReader interface {
	GetAccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error)
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// PresaleSnapshot is the cached view of the presale record. When a
// refresh fails the previous state is kept and marked stale; when the
// record is absent on the ledger, State is nil.
type PresaleSnapshot struct {
	State     *PresaleState
	Stale     bool
	UpdatedAt time.Time
}

// BalanceSnapshot is the cached view of a token account balance. A
// missing token account is a valid zero balance with Exists=false.
type BalanceSnapshot struct {
	Amount    uint64
	Exists    bool
	Stale     bool
	UpdatedAt time.Time
}

// BuyerSnapshot is the cached view of one buyer record. Found is false
// for buyers with no contribution yet; State is then the logical-zero
// record.
type BuyerSnapshot struct {
	State     *BuyerState
	Found     bool
	Stale     bool
	UpdatedAt time.Time
}

// Reader fetches and caches the presale record, buyer records and token
// balances. Each query type is guarded against duplicate concurrent
// fetches: a refresh issued while one is already in flight shares its
// result instead of hitting the ledger again.
type Reader struct {
	client   LedgerReader
	addrs    *Addresses
	ownerATA solana.PublicKey
	logger   *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	presale PresaleSnapshot
	vault   BalanceSnapshot
	owner   BalanceSnapshot
	buyers  map[string]BuyerSnapshot
}

// NewReader creates a Reader over already-derived addresses.
func NewReader(client LedgerReader, addrs *Addresses, logger *zap.Logger) (*Reader, error) {
	ownerATA, _, err := solana.FindAssociatedTokenAddress(addrs.Owner, addrs.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("owner token account: %w", err)
	}
	return &Reader{
		client:   client,
		addrs:    addrs,
		ownerATA: ownerATA,
		logger:   logger.Named("reader"),
		buyers:   make(map[string]BuyerSnapshot),
	}, nil
}

// Presale returns the cached presale snapshot.
func (r *Reader) Presale() PresaleSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presale
}

// VaultBalance returns the cached vault balance snapshot.
func (r *Reader) VaultBalance() BalanceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vault
}

// OwnerBalance returns the cached owner token balance snapshot.
func (r *Reader) OwnerBalance() BalanceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// Buyer returns the cached snapshot for one buyer identity.
func (r *Reader) Buyer(buyer solana.PublicKey) BuyerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buyers[buyer.String()]
}

// RefreshPresale re-reads the presale record. A missing record surfaces
// as ErrNotFound; transport and decode failures keep the previous
// snapshot and mark it stale.
func (r *Reader) RefreshPresale(ctx context.Context) (*PresaleState, error) {
	v, err, _ := r.group.Do("presale", func() (interface{}, error) {
		data, err := r.client.GetAccountData(ctx, r.addrs.Presale)
		if err != nil {
			if errors.Is(err, solbc.ErrAccountNotFound) {
				r.setPresale(PresaleSnapshot{UpdatedAt: time.Now()})
				return nil, fmt.Errorf("presale record %s: %w", r.addrs.Presale, ErrNotFound)
			}
			r.markPresaleStale()
			return nil, &RemoteReadError{Query: "presale", Err: err}
		}

		state, err := DecodePresale(data)
		if err != nil {
			r.markPresaleStale()
			return nil, &RemoteReadError{Query: "presale", Err: err}
		}

		r.setPresale(PresaleSnapshot{State: state, UpdatedAt: time.Now()})
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PresaleState), nil
}

// RefreshVaultBalance re-reads the vault token balance. An absent vault
// token account is a valid zero balance.
func (r *Reader) RefreshVaultBalance(ctx context.Context) (uint64, error) {
	return r.refreshBalance(ctx, "vault", r.addrs.Vault, func(s BalanceSnapshot) {
		r.mu.Lock()
		r.vault = s
		r.mu.Unlock()
	}, func() {
		r.mu.Lock()
		r.vault.Stale = true
		r.mu.Unlock()
	})
}

// RefreshOwnerBalance re-reads the owner's token balance at their
// associated token account.
func (r *Reader) RefreshOwnerBalance(ctx context.Context) (uint64, error) {
	return r.refreshBalance(ctx, "owner", r.ownerATA, func(s BalanceSnapshot) {
		r.mu.Lock()
		r.owner = s
		r.mu.Unlock()
	}, func() {
		r.mu.Lock()
		r.owner.Stale = true
		r.mu.Unlock()
	})
}

func (r *Reader) refreshBalance(ctx context.Context, key string, account solana.PublicKey, store func(BalanceSnapshot), markStale func()) (uint64, error) {
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		amount, err := r.client.GetTokenBalance(ctx, account)
		if err != nil {
			if errors.Is(err, solbc.ErrAccountNotFound) {
				store(BalanceSnapshot{Amount: 0, Exists: false, UpdatedAt: time.Now()})
				return uint64(0), nil
			}
			markStale()
			return uint64(0), &RemoteReadError{Query: key + " balance", Err: err}
		}
		store(BalanceSnapshot{Amount: amount, Exists: true, UpdatedAt: time.Now()})
		return amount, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// RefreshBuyer re-reads one buyer record. A buyer with no prior
// contribution yields the logical-zero record, not an error.
func (r *Reader) RefreshBuyer(ctx context.Context, buyer solana.PublicKey) (*BuyerState, error) {
	key := "buyer:" + buyer.String()
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		buyerPDA, _, err := r.addrs.BuyerState(buyer)
		if err != nil {
			return nil, err
		}

		data, err := r.client.GetAccountData(ctx, buyerPDA)
		if err != nil {
			if errors.Is(err, solbc.ErrAccountNotFound) {
				empty := &BuyerState{Presale: r.addrs.Presale, Buyer: buyer}
				r.setBuyer(buyer, BuyerSnapshot{State: empty, Found: false, UpdatedAt: time.Now()})
				return empty, nil
			}
			r.markBuyerStale(buyer)
			return nil, &RemoteReadError{Query: "buyer", Err: err}
		}

		state, err := DecodeBuyer(data)
		if err != nil {
			r.markBuyerStale(buyer)
			return nil, &RemoteReadError{Query: "buyer", Err: err}
		}

		r.setBuyer(buyer, BuyerSnapshot{State: state, Found: true, UpdatedAt: time.Now()})
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BuyerState), nil
}

// RefreshAll refreshes the presale record and both balances in parallel.
// Used at process start and by the poller.
func (r *Reader) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := r.RefreshPresale(ctx)
		return err
	})
	g.Go(func() error {
		_, err := r.RefreshVaultBalance(ctx)
		return err
	})
	g.Go(func() error {
		_, err := r.RefreshOwnerBalance(ctx)
		return err
	})
	return g.Wait()
}

func (r *Reader) setPresale(s PresaleSnapshot) {
	r.mu.Lock()
	r.presale = s
	r.mu.Unlock()
}

func (r *Reader) markPresaleStale() {
	r.mu.Lock()
	r.presale.Stale = true
	r.mu.Unlock()
}

func (r *Reader) setBuyer(buyer solana.PublicKey, s BuyerSnapshot) {
	r.mu.Lock()
	r.buyers[buyer.String()] = s
	r.mu.Unlock()
}

func (r *Reader) markBuyerStale(buyer solana.PublicKey) {
	r.mu.Lock()
	snap := r.buyers[buyer.String()]
	snap.Stale = true
	r.buyers[buyer.String()] = snap
	r.mu.Unlock()
}
