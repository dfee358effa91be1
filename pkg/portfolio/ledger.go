package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplyTransaction folds tx into the net holdings of its user. A position
// whose net quantity reaches exactly zero is removed. Quantities are summed in
// decimal so fractional fills net out.
func ApplyTransaction(holdings []Holding, tx Transaction) []Holding {
	out := make([]Holding, 0, len(holdings)+1)
	found := false
	for _, h := range holdings {
		if h.UserID == tx.UserID && h.Symbol == tx.Symbol {
			found = true
			h.Quantity = decimal.NewFromFloat(h.Quantity).Add(decimal.NewFromFloat(tx.Quantity)).InexactFloat64()
			if h.Quantity == 0 {
				continue
			}
		}
		out = append(out, h)
	}
	if !found && tx.Quantity != 0 {
		out = append(out, Holding{UserID: tx.UserID, Symbol: tx.Symbol, Quantity: tx.Quantity})
	}
	return out
}

type ledgerState struct {
	Users        []User               `json:"users"`
	Holdings     map[string][]Holding `json:"holdings"`
	Transactions []Transaction        `json:"transactions"`
}

func newLedgerState() *ledgerState {
	return &ledgerState{Holdings: make(map[string][]Holding)}
}

func (s *ledgerState) upsertUser(u User) {
	for i := range s.Users {
		if s.Users[i].ID == u.ID {
			s.Users[i] = u
			return
		}
	}
	s.Users = append(s.Users, u)
}

// PrepareTransaction normalises the user and symbol, rejects non-finite
// quantities and non-finite or negative prices, and assigns an ID and
// timestamp when missing.
func PrepareTransaction(tx Transaction, now time.Time) (Transaction, error) {
	tx.UserID = strings.TrimSpace(tx.UserID)
	tx.Symbol = strings.ToUpper(strings.TrimSpace(tx.Symbol))
	if tx.UserID == "" || tx.Symbol == "" {
		return Transaction{}, fmt.Errorf("portfolio: transaction needs user and symbol")
	}
	if !isFinite(tx.Quantity) || !isFinite(tx.Price) || tx.Price < 0 {
		return Transaction{}, fmt.Errorf("portfolio: transaction %s/%s: %w", tx.UserID, tx.Symbol, ErrInvalidInput)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = now
	}
	return tx, nil
}

func (s *ledgerState) record(tx Transaction) (Transaction, error) {
	tx, err := PrepareTransaction(tx, time.Now().UTC())
	if err != nil {
		return Transaction{}, err
	}
	s.Transactions = append(s.Transactions, tx)
	s.Holdings[tx.UserID] = ApplyTransaction(s.Holdings[tx.UserID], tx)
	if len(s.Holdings[tx.UserID]) == 0 {
		delete(s.Holdings, tx.UserID)
	}
	return tx, nil
}

func (s *ledgerState) users() []User {
	return append([]User(nil), s.Users...)
}

func (s *ledgerState) holdings(ids []string) map[string][]Holding {
	out := make(map[string][]Holding)
	if ids == nil {
		for id, hs := range s.Holdings {
			out[id] = append([]Holding(nil), hs...)
		}
		return out
	}
	for _, id := range ids {
		if hs, ok := s.Holdings[id]; ok {
			out[id] = append([]Holding(nil), hs...)
		}
	}
	return out
}

func (s *ledgerState) history(userID string, limit int) []Transaction {
	var out []Transaction
	for _, tx := range s.Transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu    sync.RWMutex
	state *ledgerState
}

// NewMemoryLedger returns a ledger with users in the given order.
func NewMemoryLedger(users ...User) *MemoryLedger {
	l := &MemoryLedger{state: newLedgerState()}
	for _, u := range users {
		l.state.upsertUser(u)
	}
	return l
}

// UpsertUser adds or replaces a user.
func (l *MemoryLedger) UpsertUser(u User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.upsertUser(u)
}

// Record appends tx and updates the user's net holdings.
func (l *MemoryLedger) Record(_ context.Context, tx Transaction) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.record(tx)
}

// Users implements Ledger.
func (l *MemoryLedger) Users(context.Context) ([]User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.users(), nil
}

// Holdings implements Ledger.
func (l *MemoryLedger) Holdings(_ context.Context, userIDs []string) (map[string][]Holding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.holdings(userIDs), nil
}

// History implements Ledger.
func (l *MemoryLedger) History(_ context.Context, userID string, limit int) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.history(userID, limit), nil
}

// FileLedger persists the ledger as one JSON document.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

// NewFileLedger returns a ledger backed by path.
func NewFileLedger(path string) *FileLedger {
	if path == "" {
		path = filepath.Join("data", "ledger.json")
	}
	return &FileLedger{path: path}
}

// UpsertUser adds or replaces a user.
func (l *FileLedger) UpsertUser(_ context.Context, u User) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, err := l.read()
	if err != nil {
		return err
	}
	state.upsertUser(u)
	return l.write(state)
}

// Record appends tx and updates the user's net holdings.
func (l *FileLedger) Record(_ context.Context, tx Transaction) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, err := l.read()
	if err != nil {
		return Transaction{}, err
	}
	tx, err = state.record(tx)
	if err != nil {
		return Transaction{}, err
	}
	return tx, l.write(state)
}

// Users implements Ledger.
func (l *FileLedger) Users(context.Context) ([]User, error) {
	state, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return state.users(), nil
}

// Holdings implements Ledger.
func (l *FileLedger) Holdings(_ context.Context, userIDs []string) (map[string][]Holding, error) {
	state, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return state.holdings(userIDs), nil
}

// History implements Ledger.
func (l *FileLedger) History(_ context.Context, userID string, limit int) ([]Transaction, error) {
	state, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return state.history(userID, limit), nil
}

func (l *FileLedger) snapshot() (*ledgerState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *FileLedger) read() (*ledgerState, error) {
	state := newLedgerState()
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("portfolio: read %s: %w", l.path, err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("portfolio: decode %s: %w", l.path, err)
	}
	if state.Holdings == nil {
		state.Holdings = make(map[string][]Holding)
	}
	return state, nil
}

func (l *FileLedger) write(state *ledgerState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("portfolio: encode ledger: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("portfolio: mkdir %s: %w", dir, err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("portfolio: write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("portfolio: replace %s: %w", l.path, err)
	}
	return nil
}
