// Package memstore is an in-memory store.Store. Transactions work on a private copy
// of the whole state that replaces the shared state on commit, so a failed
// transaction leaves nothing behind. Transactions are serialized.
package memstore

import (
	"context"
	"sync"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"gorm.io/datatypes"
)

type state struct {
	products     map[string]models.Product
	carts        map[string]models.Cart
	reports      map[string]models.Report
	debts        map[string]models.Debt
	expenditures map[string]models.Expenditure
	users        map[string]models.User
}

func newState() *state {
	return &state{
		products:     map[string]models.Product{},
		carts:        map[string]models.Cart{},
		reports:      map[string]models.Report{},
		debts:        map[string]models.Debt{},
		expenditures: map[string]models.Expenditure{},
		users:        map[string]models.User{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.carts {
		out.carts[k] = copyCart(v)
	}
	for k, v := range s.reports {
		out.reports[k] = copyReport(v)
	}
	for k, v := range s.debts {
		out.debts[k] = copyDebt(v)
	}
	for k, v := range s.expenditures {
		out.expenditures[k] = copyExpenditure(v)
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

func copyCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return c
}

func copyReport(r models.Report) models.Report {
	r.Items = append([]models.ReportItem{}, r.Items...)
	r.Expenditures = append([]models.ReportExpenditure{}, r.Expenditures...)
	r.Categories = datatypes.NewJSONType(r.CategoryBreakdown())
	r.ExpenditureCategories = datatypes.NewJSONType(r.ExpenditureBreakdown())
	return r
}

func copyDebt(d models.Debt) models.Debt {
	d.Payments = append([]models.PaymentRecord{}, d.Payments...)
	return d
}

func copyExpenditure(e models.Expenditure) models.Expenditure {
	if e.ApprovalDate != nil {
		at := *e.ApprovalDate
		e.ApprovalDate = &at
	}
	return e
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

// view is either the shared state (tx == nil, each call takes the lock) or a
// transaction's private copy (the lock is held by Transact).
type view struct {
	s  *Store
	tx *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.state)
}

func (v view) Products() store.ProductStore         { return productRepo{v} }
func (v view) Carts() store.CartStore               { return cartRepo{v} }
func (v view) Reports() store.ReportStore           { return reportRepo{v} }
func (v view) Debts() store.DebtStore               { return debtRepo{v} }
func (v view) Expenditures() store.ExpenditureStore { return expenditureRepo{v} }
func (v view) Users() store.UserStore               { return userRepo{v} }

func (v view) Transact(ctx context.Context, fn func(tx store.Store) error) error {
	if v.tx != nil {
		return fn(v)
	}
	return v.s.Transact(ctx, fn)
}

func (s *Store) Products() store.ProductStore         { return view{s: s}.Products() }
func (s *Store) Carts() store.CartStore               { return view{s: s}.Carts() }
func (s *Store) Reports() store.ReportStore           { return view{s: s}.Reports() }
func (s *Store) Debts() store.DebtStore               { return view{s: s}.Debts() }
func (s *Store) Expenditures() store.ExpenditureStore { return view{s: s}.Expenditures() }
func (s *Store) Users() store.UserStore               { return view{s: s}.Users() }

// Transact runs fn on a copy of the state and commits the copy when fn succeeds.
// fn must use the tx it is given; calling back into s from fn deadlocks.
func (s *Store) Transact(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(view{s: s, tx: tx}); err != nil {
		return err
	}
	s.state = tx
	return nil
}

var _ store.Store = (*Store)(nil)
