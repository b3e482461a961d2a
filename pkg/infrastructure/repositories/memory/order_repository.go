package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// ProductionRepository provides in-memory storage of production runs
type ProductionRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

// Create stores a run and its material snapshot
func (r *ProductionRepository) Create(ctx context.Context, run *entities.ProductionRun) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.products[run.ProductID]; !ok {
		return fmt.Errorf("product %d does not exist: %w", run.ProductID, entities.ErrConflict)
	}
	run.ID = st.nextID("production_runs")
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	stored := *run
	stored.Materials = append([]entities.RunMaterial(nil), run.Materials...)
	st.runs[run.ID] = stored
	return nil
}

// Get returns a run by id
func (r *ProductionRepository) Get(ctx context.Context, id int64) (*entities.ProductionRun, error) {
	st, release := r.acquire()
	defer release()

	run, ok := st.runs[id]
	if !ok {
		return nil, fmt.Errorf("production run %d: %w", id, entities.ErrNotFound)
	}
	run.Materials = append([]entities.RunMaterial(nil), run.Materials...)
	return &run, nil
}

// List returns runs newest first
func (r *ProductionRepository) List(ctx context.Context, limit int) ([]*entities.ProductionRun, error) {
	st, release := r.acquire()
	defer release()

	runs := make([]*entities.ProductionRun, 0, len(st.runs))
	for _, run := range st.runs {
		run := run
		run.Materials = append([]entities.RunMaterial(nil), run.Materials...)
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Transition moves a run from one status to another only if it is still in from
func (r *ProductionRepository) Transition(ctx context.Context, id int64, from, to entities.RunStatus, at time.Time) error {
	st, release := r.acquire()
	defer release()

	run, ok := st.runs[id]
	if !ok {
		return fmt.Errorf("production run %d: %w", id, entities.ErrNotFound)
	}
	if run.Status != from {
		return fmt.Errorf("run %d is %s, not %s: %w", id, run.Status, from, entities.ErrInvalidTransition)
	}
	if err := run.Transition(to, at); err != nil {
		return err
	}
	st.runs[id] = run
	return nil
}

// SaleRepository provides in-memory storage of invoices
type SaleRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.SaleRepository = (*SaleRepository)(nil)

// Create stores a sale and assigns ids to it and its items
func (r *SaleRepository) Create(ctx context.Context, sale *entities.Sale) error {
	st, release := r.acquire()
	defer release()

	for _, s := range st.sales {
		if s.InvoiceNumber == sale.InvoiceNumber {
			return fmt.Errorf("invoice %s already exists: %w", sale.InvoiceNumber, entities.ErrConflict)
		}
	}
	for _, item := range sale.Items {
		if _, ok := st.products[item.ProductID]; !ok {
			return fmt.Errorf("product %d does not exist: %w", item.ProductID, entities.ErrConflict)
		}
	}
	sale.ID = st.nextID("sales")
	for i := range sale.Items {
		sale.Items[i].ID = st.nextID("sales_items")
	}
	stored := *sale
	stored.Items = append([]entities.SaleItem(nil), sale.Items...)
	st.sales[sale.ID] = stored
	return nil
}

// Get returns a sale with its items
func (r *SaleRepository) Get(ctx context.Context, id int64) (*entities.Sale, error) {
	st, release := r.acquire()
	defer release()

	s, ok := st.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %d: %w", id, entities.ErrNotFound)
	}
	s.Items = append([]entities.SaleItem(nil), s.Items...)
	return &s, nil
}

// List returns sales newest first
func (r *SaleRepository) List(ctx context.Context, limit int) ([]*entities.Sale, error) {
	st, release := r.acquire()
	defer release()

	sales := make([]*entities.Sale, 0, len(st.sales))
	for _, s := range st.sales {
		s := s
		s.Items = append([]entities.SaleItem(nil), s.Items...)
		sales = append(sales, &s)
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].SaleDate.Equal(sales[j].SaleDate) {
			return sales[i].ID > sales[j].ID
		}
		return sales[i].SaleDate.After(sales[j].SaleDate)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

// UserRepository provides in-memory storage of operator accounts
type UserRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.UserRepository = (*UserRepository)(nil)

// Create stores a user with a unique email
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	st, release := r.acquire()
	defer release()

	for _, u := range st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s is already registered: %w", user.Email, entities.ErrConflict)
		}
	}
	user.ID = st.nextID("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	st.users[user.ID] = *user
	return nil
}

// Get returns a user by id
func (r *UserRepository) Get(ctx context.Context, id int64) (*entities.User, error) {
	st, release := r.acquire()
	defer release()

	u, ok := st.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, entities.ErrNotFound)
	}
	return &u, nil
}

// GetByEmail returns a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	st, release := r.acquire()
	defer release()

	for _, u := range st.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, entities.ErrNotFound)
}
