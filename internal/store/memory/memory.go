// Package memory is an in-process implementation of store.Store used by
// tests and by DATA_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/store"
)

type budgetKey struct {
	year  int
	month string
}

type Store struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]core.Account
	transactions map[uuid.UUID]core.Transaction
	budgets      map[budgetKey]core.Budget
	goals        map[uuid.UUID]core.SavingsGoal
	settings     *core.Settings
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{}
	s.clear()
	return s
}

func (s *Store) clear() {
	s.accounts = make(map[uuid.UUID]core.Account)
	s.transactions = make(map[uuid.UUID]core.Transaction)
	s.budgets = make(map[budgetKey]core.Budget)
	s.goals = make(map[uuid.UUID]core.SavingsGoal)
	s.settings = nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	return nil
}

// nameTaken reports whether another account already uses name.
func (s *Store) nameTaken(name string, except uuid.UUID) bool {
	key := core.NormalizeAccountName(name)
	for id, a := range s.accounts {
		if id != except && core.NormalizeAccountName(a.Name) == key {
			return true
		}
	}
	return false
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(a.Name, a.ID) {
		return core.ErrDuplicateAccountName
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return store.ErrNotFound
	}
	if s.nameTaken(a.Name, a.ID) {
		return core.ErrDuplicateAccountName
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) FindAccountByName(_ context.Context, name string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.NormalizeAccountName(name)
	for _, a := range s.accounts {
		if core.NormalizeAccountName(a.Name) == key {
			return a, nil
		}
	}
	return core.Account{}, store.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return core.NormalizeAccountName(out[i].Name) < core.NormalizeAccountName(out[j].Name)
	})
	return out, nil
}

func (s *Store) CountAccounts(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), nil
}

func (s *Store) DeleteAccount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, id)
	for tid, tx := range s.transactions {
		if tx.AccountID != nil && *tx.AccountID == id {
			tx.AccountID = nil
			s.transactions[tid] = tx
		}
	}
	for gid, g := range s.goals {
		if g.AccountID != nil && *g.AccountID == id {
			g.AccountID = nil
			s.goals[gid] = g
		}
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return store.ErrNotFound
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, f store.TransactionFilter) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, tx := range s.transactions {
		if f.Matches(tx) {
			ids = append(ids, id)
			delete(s.transactions, id)
		}
	}
	return ids, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey{year: b.Year, month: b.Month}
	if existing, ok := s.budgets[key]; ok {
		b.ID = existing.ID
	}
	b.IncomeSources = append([]core.IncomeSource{}, b.IncomeSources...)
	s.budgets[key] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, year, month int) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetKey{year: year, month: core.FormatMonth(month)}]
	if !ok {
		return core.Budget{}, store.ErrNotFound
	}
	b.IncomeSources = append([]core.IncomeSource{}, b.IncomeSources...)
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		b.IncomeSources = append([]core.IncomeSource{}, b.IncomeSources...)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *Store) DeleteBudget(_ context.Context, year, month int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey{year: year, month: core.FormatMonth(month)}
	if _, ok := s.budgets[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.budgets, key)
	return nil
}

func (s *Store) CreateGoal(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = g
	return nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; !ok {
		return store.ErrNotFound
	}
	s.goals[g.ID] = g
	return nil
}

func (s *Store) GetGoal(_ context.Context, id uuid.UUID) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.SavingsGoal{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SavingsGoal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteGoal(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) LoadSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return core.Settings{}, store.ErrNotFound
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}
