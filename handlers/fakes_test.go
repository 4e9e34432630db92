package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"productsapi/models"
	"productsapi/repository"
)

type fakeProducts struct {
	mu    sync.Mutex
	items map[string]*models.Product
	err   error
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{items: map[string]*models.Product{}}
}

func (f *fakeProducts) visible(p *models.Product, userID *int64) bool {
	return userID == nil || p.UserID == nil || *p.UserID == *userID
}

func (f *fakeProducts) List(_ context.Context, userID *int64) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Product{}
	for _, p := range f.items {
		if f.visible(p, userID) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProducts) Get(_ context.Context, id string, userID *int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || !f.visible(p, userID) {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product, userID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.items[p.ID]; ok {
		return repository.ErrConflict
	}
	p.ApplyCreateDefaults()
	p.UserID = userID
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeProducts) Update(ctx context.Context, id string, p *models.Product, userID *int64) (*models.Product, error) {
	f.mu.Lock()
	cur, ok := f.items[id]
	if !ok || !f.visible(cur, userID) {
		f.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	p.ID, p.UserID = id, cur.UserID
	cp := *p
	f.items[id] = &cp
	f.mu.Unlock()
	return f.Get(ctx, id, userID)
}

func (f *fakeProducts) Delete(_ context.Context, id string, userID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || !f.visible(p, userID) {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeProducts) Search(_ context.Context, q string) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Product{}
	for _, p := range f.items {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) AdjustStock(_ context.Context, id string, quantity int, op string) (*models.StockChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := models.ApplyStock(0, quantity, op); !ok {
		return nil, repository.ErrInvalidOperation
	}
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	old := p.Quantity
	p.Quantity, _ = models.ApplyStock(old, quantity, op)
	return &models.StockChange{ProductID: id, OldQuantity: old, NewQuantity: p.Quantity}, nil
}

func (f *fakeProducts) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

type fakeSales struct {
	mu       sync.Mutex
	items    map[string]*models.Sale
	lastFrom time.Time
	lastTo   time.Time
}

func newFakeSales() *fakeSales {
	return &fakeSales{items: map[string]*models.Sale{}}
}

func (f *fakeSales) List(_ context.Context, start, end *time.Time) ([]*models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Sale{}
	for _, s := range f.items {
		if start != nil && end != nil && (s.Timestamp.Before(*start) || s.Timestamp.After(*end)) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSales) Get(_ context.Context, id string) (*models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeSales) Create(_ context.Context, s *models.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[s.ID]; ok {
		return repository.ErrConflict
	}
	s.CreatedAt = time.Now().UTC()
	f.items[s.ID] = s
	return nil
}

func (f *fakeSales) Summary(_ context.Context, from, to time.Time) (*models.SalesSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFrom, f.lastTo = from, to
	sum := &models.SalesSummary{}
	for _, s := range f.items {
		sum.TotalSales++
		sum.TotalRevenue = sum.TotalRevenue.Add(s.TotalAmount)
		if !s.Timestamp.Before(from) && s.Timestamp.Before(to) {
			sum.TodaySales++
			sum.TodayRevenue = sum.TodayRevenue.Add(s.TotalAmount)
		}
	}
	return sum, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[int64]*models.AppUser
	maxID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.AppUser{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.AppUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	if u.Role == "" {
		u.Role = models.DefaultRole
	}
	f.maxID++
	u.ID = f.maxID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.AppUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.AppUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
