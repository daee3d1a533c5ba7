package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"
)

type productRepo struct{ v view }

func (r productRepo) FindByID(_ context.Context, id string) (*models.Product, error) {
	var out *models.Product
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// FindByIDForUpdate is FindByID; transactions here are already serialized.
func (r productRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Product, error) {
	return r.FindByID(ctx, id)
}

func (r productRepo) FindBySKU(_ context.Context, sku string) (*models.Product, error) {
	var out *models.Product
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if p.SKU == sku {
				p := p
				out = &p
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r productRepo) List(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	out := []models.Product{}
	search := strings.ToLower(filter.Search)
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func skuTaken(st *state, sku, exceptID string) bool {
	for id, p := range st.products {
		if p.SKU == sku && id != exceptID {
			return true
		}
	}
	return false
}

func (r productRepo) Create(_ context.Context, p *models.Product) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.products[p.ID]; ok || skuTaken(st, p.SKU, "") {
			return store.ErrDuplicate
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Update(_ context.Context, p *models.Product) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return store.ErrNotFound
		}
		if skuTaken(st, p.SKU, p.ID) {
			return store.ErrDuplicate
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r productRepo) DecrementStock(_ context.Context, id string, qty int) error {
	return r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return store.ErrNotFound
		}
		if p.Quantity < qty {
			return store.ErrInsufficientStock
		}
		p.Quantity -= qty
		p.UpdatedAt = time.Now()
		st.products[id] = p
		return nil
	})
}

func (r productRepo) IncrementStock(_ context.Context, id string, qty int) error {
	return r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return store.ErrNotFound
		}
		p.Quantity += qty
		p.UpdatedAt = time.Now()
		st.products[id] = p
		return nil
	})
}

func (r productRepo) LowStock(_ context.Context) ([]models.Product, error) {
	out := []models.Product{}
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if p.NeedsReorder() {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out, err
}

type cartRepo struct{ v view }

func (r cartRepo) FindActiveByUser(_ context.Context, userID string) (*models.Cart, error) {
	var out *models.Cart
	err := r.v.do(func(st *state) error {
		for _, c := range st.carts {
			if c.UserID == userID && c.Status == models.CartActive {
				c := copyCart(c)
				out = &c
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r cartRepo) Save(_ context.Context, cart *models.Cart) error {
	return r.v.do(func(st *state) error {
		if stored, ok := st.carts[cart.ID]; ok && stored.Status != models.CartActive {
			return store.ErrStale
		}
		if cart.Status == models.CartActive {
			for id, c := range st.carts {
				if id != cart.ID && c.UserID == cart.UserID && c.Status == models.CartActive {
					return store.ErrDuplicate
				}
			}
		}
		st.carts[cart.ID] = copyCart(*cart)
		return nil
	})
}

func (r cartRepo) List(_ context.Context, status models.CartStatus, page store.Page) ([]models.Cart, int64, error) {
	all := []models.Cart{}
	err := r.v.do(func(st *state) error {
		for _, c := range st.carts {
			if status == "" || c.Status == status {
				all = append(all, copyCart(c))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	return paginate(all, page), int64(len(all)), nil
}

func (r cartRepo) ExpireAbandoned(_ context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		for id, c := range st.carts {
			if c.Status == models.CartActive && c.UpdatedAt.Before(before) {
				c.Status = models.CartAbandoned
				st.carts[id] = c
				n++
			}
		}
		return nil
	})
	return n, err
}

type reportRepo struct{ v view }

func (r reportRepo) Create(_ context.Context, rep *models.Report) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.reports[rep.ID]; ok {
			return store.ErrDuplicate
		}
		st.reports[rep.ID] = copyReport(*rep)
		return nil
	})
}

func (r reportRepo) FindByID(_ context.Context, id string) (*models.Report, error) {
	var out *models.Report
	err := r.v.do(func(st *state) error {
		rep, ok := st.reports[id]
		if !ok {
			return store.ErrNotFound
		}
		rep = copyReport(rep)
		out = &rep
		return nil
	})
	return out, err
}

func (r reportRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Report, error) {
	return r.FindByID(ctx, id)
}

func (r reportRepo) FindLatest(_ context.Context) (*models.Report, error) {
	var out *models.Report
	err := r.v.do(func(st *state) error {
		for _, rep := range st.reports {
			if out == nil || rep.Date.After(out.Date) {
				rep := rep
				out = &rep
			}
		}
		if out == nil {
			return store.ErrNotFound
		}
		latest := copyReport(*out)
		out = &latest
		return nil
	})
	return out, err
}

func (r reportRepo) Save(_ context.Context, rep *models.Report) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.reports[rep.ID]; !ok {
			return store.ErrNotFound
		}
		st.reports[rep.ID] = copyReport(*rep)
		return nil
	})
}

func (r reportRepo) SaveSettlement(_ context.Context, rep *models.Report) error {
	return r.v.do(func(st *state) error {
		stored, ok := st.reports[rep.ID]
		if !ok {
			return store.ErrNotFound
		}
		stored.AmountPaid = rep.AmountPaid
		stored.RemainingBalance = rep.RemainingBalance
		stored.PaymentStatus = rep.PaymentStatus
		stored.UpdatedAt = rep.UpdatedAt
		st.reports[rep.ID] = stored
		return nil
	})
}

func (r reportRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.reports[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.reports, id)
		return nil
	})
}

func (r reportRepo) DeleteRange(_ context.Context, start, end time.Time) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		for id, rep := range st.reports {
			if rep.Date.Before(start) || rep.Date.After(end) {
				continue
			}
			delete(st.reports, id)
			n++
		}
		return nil
	})
	return n, err
}

func reportMatches(rep models.Report, f store.ReportFilter) bool {
	if f.Start != nil && rep.Date.Before(*f.Start) {
		return false
	}
	if f.End != nil && rep.Date.After(*f.End) {
		return false
	}
	if f.Type != "" && rep.Type != f.Type {
		return false
	}
	if f.UserID != "" && rep.UserID != f.UserID {
		return false
	}
	if f.Category != "" {
		for _, item := range rep.Items {
			if item.Category == f.Category {
				return true
			}
		}
		return false
	}
	return true
}

func (r reportRepo) List(_ context.Context, filter store.ReportFilter) ([]models.Report, error) {
	out := []models.Report{}
	err := r.v.do(func(st *state) error {
		for _, rep := range st.reports {
			if reportMatches(rep, filter) {
				out = append(out, copyReport(rep))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}

func (r reportRepo) Summarize(_ context.Context, start, end time.Time) (*store.SalesSummary, error) {
	sum := &store.SalesSummary{}
	err := r.v.do(func(st *state) error {
		for _, rep := range st.reports {
			if rep.Type == models.ReportTypeExpenditure || rep.Date.Before(start) || rep.Date.After(end) {
				continue
			}
			sum.TotalRevenue = sum.TotalRevenue.Add(rep.TotalRevenue)
			sum.TotalCount++
		}
		return nil
	})
	return sum, err
}

func (r reportRepo) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		n = int64(len(st.reports))
		st.reports = map[string]models.Report{}
		return nil
	})
	return n, err
}

type debtRepo struct{ v view }

func (r debtRepo) Create(_ context.Context, d *models.Debt) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.debts[d.ID]; ok {
			return store.ErrDuplicate
		}
		if d.Version == 0 {
			d.Version = 1
		}
		st.debts[d.ID] = copyDebt(*d)
		return nil
	})
}

func (r debtRepo) FindByID(_ context.Context, id string) (*models.Debt, error) {
	var out *models.Debt
	err := r.v.do(func(st *state) error {
		d, ok := st.debts[id]
		if !ok {
			return store.ErrNotFound
		}
		d = copyDebt(d)
		out = &d
		return nil
	})
	return out, err
}

func (r debtRepo) FindByReport(_ context.Context, reportID string) (*models.Debt, error) {
	var out *models.Debt
	err := r.v.do(func(st *state) error {
		for _, d := range st.debts {
			if d.ReportID == reportID {
				d = copyDebt(d)
				out = &d
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r debtRepo) Update(_ context.Context, d *models.Debt) error {
	return r.v.do(func(st *state) error {
		current, ok := st.debts[d.ID]
		if !ok {
			return store.ErrNotFound
		}
		if current.Version != d.Version {
			return store.ErrStale
		}
		d.Version++
		st.debts[d.ID] = copyDebt(*d)
		return nil
	})
}

func debtLess(a, b models.Debt, sortBy string) bool {
	switch sortBy {
	case "dueDate":
		return a.DueDate.Before(b.DueDate)
	case "remainingAmount":
		return a.RemainingAmount.LessThan(b.RemainingAmount)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (r debtRepo) List(_ context.Context, filter store.DebtFilter) ([]models.Debt, int64, error) {
	all := []models.Debt{}
	err := r.v.do(func(st *state) error {
		for _, d := range st.debts {
			if filter.UserID != "" && d.UserID != filter.UserID {
				continue
			}
			if filter.Status != "" && d.Status != filter.Status {
				continue
			}
			all = append(all, copyDebt(d))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if filter.Desc {
			return debtLess(all[j], all[i], filter.SortBy)
		}
		return debtLess(all[i], all[j], filter.SortBy)
	})
	return paginate(all, filter.Page), int64(len(all)), nil
}

func (r debtRepo) Outstanding(_ context.Context) ([]models.Debt, error) {
	out := []models.Debt{}
	err := r.v.do(func(st *state) error {
		for _, d := range st.debts {
			if d.IsOutstanding() {
				out = append(out, copyDebt(d))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, err
}

func (r debtRepo) MarkOverdue(_ context.Context, now time.Time) ([]models.Debt, error) {
	flipped := []models.Debt{}
	err := r.v.do(func(st *state) error {
		for id, d := range st.debts {
			if d.Status != models.DebtCurrent || !d.DueDate.Before(now) || !d.RemainingAmount.IsPositive() {
				continue
			}
			d.Status = models.DebtOverdue
			d.Version++
			d.UpdatedAt = now
			st.debts[id] = d
			flipped = append(flipped, copyDebt(d))
		}
		return nil
	})
	return flipped, err
}

func (r debtRepo) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		n = int64(len(st.debts))
		st.debts = map[string]models.Debt{}
		return nil
	})
	return n, err
}

type expenditureRepo struct{ v view }

func (r expenditureRepo) Create(_ context.Context, e *models.Expenditure) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.expenditures[e.ID]; ok {
			return store.ErrDuplicate
		}
		st.expenditures[e.ID] = copyExpenditure(*e)
		return nil
	})
}

func (r expenditureRepo) FindByID(_ context.Context, id string) (*models.Expenditure, error) {
	var out *models.Expenditure
	err := r.v.do(func(st *state) error {
		e, ok := st.expenditures[id]
		if !ok {
			return store.ErrNotFound
		}
		e = copyExpenditure(e)
		out = &e
		return nil
	})
	return out, err
}

func (r expenditureRepo) Save(_ context.Context, e *models.Expenditure) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.expenditures[e.ID]; !ok {
			return store.ErrNotFound
		}
		st.expenditures[e.ID] = copyExpenditure(*e)
		return nil
	})
}

func (r expenditureRepo) List(_ context.Context, f store.ExpenditureFilter) ([]models.Expenditure, error) {
	out := []models.Expenditure{}
	err := r.v.do(func(st *state) error {
		for _, e := range st.expenditures {
			switch {
			case f.Status != "" && e.Status != f.Status,
				f.Category != "" && e.Category != f.Category,
				f.EmployeeID != "" && e.EmployeeID != f.EmployeeID,
				f.Start != nil && e.Date.Before(*f.Start),
				f.End != nil && e.Date.After(*f.End):
				continue
			}
			out = append(out, copyExpenditure(e))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, err
}

func (r expenditureRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.expenditures[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.expenditures, id)
		return nil
	})
}

type userRepo struct{ v view }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == u.Username {
				return store.ErrDuplicate
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				u := u
				out = &u
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r userRepo) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		n = int64(len(st.users))
		return nil
	})
	return n, err
}

func paginate[T any](all []T, page store.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
