package handlers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

func lookupID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrInvalidID
	}
	return objID, nil
}

// --- discounts ---

type memDiscounts struct {
	mu    sync.Mutex
	items []models.Discount
}

func (m *memDiscounts) Create(_ context.Context, d *models.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.items {
		if x.Code == d.Code {
			return repository.ErrDuplicateKey
		}
	}
	d.ID = primitive.NewObjectID()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.items = append(m.items, *d)
	return nil
}

func (m *memDiscounts) FindAll(context.Context) ([]models.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Discount(nil), m.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memDiscounts) FindActive(_ context.Context, now time.Time) ([]models.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Discount{}
	for _, d := range m.items {
		if d.ValidAt(now) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (m *memDiscounts) FindActiveByCode(_ context.Context, code string, now time.Time) (*models.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].Code == code && m.items[i].ValidAt(now) {
			d := m.items[i]
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDiscounts) FindByID(_ context.Context, id string) (*models.Discount, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.items {
		if d.ID == objID {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDiscounts) Replace(_ context.Context, id string, d *models.Discount) (*models.Discount, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.items {
		if x.Code == d.Code && x.ID != objID {
			return nil, repository.ErrDuplicateKey
		}
	}
	for i := range m.items {
		if m.items[i].ID == objID {
			d.ID = objID
			d.CreatedAt = m.items[i].CreatedAt
			d.UpdatedAt = time.Now()
			m.items[i] = *d
			out := *d
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDiscounts) Delete(_ context.Context, id string) error {
	objID, err := lookupID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == objID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- advertisements ---

type memAds struct {
	mu      sync.Mutex
	items   []models.Advertisement
	failErr error // returned by Create and Replace when set
	queries int
}

func (m *memAds) Create(_ context.Context, ad *models.Advertisement) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ad.ID = primitive.NewObjectID()
	ad.CreatedAt = time.Now()
	ad.UpdatedAt = ad.CreatedAt
	m.items = append(m.items, *ad)
	return nil
}

func (m *memAds) FindByID(_ context.Context, id string) (*models.Advertisement, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ad := range m.items {
		if ad.ID == objID {
			return &ad, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAds) FindAll(_ context.Context, f models.AdFilter) ([]models.Advertisement, error) {
	return m.filter(func(ad *models.Advertisement) bool { return f.Matches(ad) }), nil
}

func (m *memAds) FindActiveByTypes(_ context.Context, types ...string) ([]models.Advertisement, error) {
	return m.filter(func(ad *models.Advertisement) bool {
		if !ad.IsActive {
			return false
		}
		for _, t := range types {
			if ad.Type == t {
				return true
			}
		}
		return false
	}), nil
}

func (m *memAds) FindActiveForProducts(_ context.Context, ids []primitive.ObjectID) ([]models.Advertisement, error) {
	return m.filter(func(ad *models.Advertisement) bool {
		if !ad.IsActive || ad.ProductID == nil {
			return false
		}
		for _, id := range ids {
			if *ad.ProductID == id {
				return true
			}
		}
		return false
	}), nil
}

func (m *memAds) Replace(_ context.Context, ad *models.Advertisement) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == ad.ID {
			ad.UpdatedAt = time.Now()
			m.items[i] = *ad
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memAds) Delete(_ context.Context, id string) (*models.Advertisement, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == objID {
			ad := m.items[i]
			m.items = append(m.items[:i], m.items[i+1:]...)
			return &ad, nil
		}
	}
	return nil, repository.ErrNotFound
}

// filter returns matches ordered by display order, newest first on ties.
func (m *memAds) filter(keep func(*models.Advertisement) bool) []models.Advertisement {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	out := []models.Advertisement{}
	for i := range m.items {
		if keep(&m.items[i]) {
			out = append(out, m.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// --- products ---

type memProducts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Product
	// staleOnce makes the next SaveReviews report a concurrent write.
	staleOnce bool
}

func newMemProducts(ps ...models.Product) *memProducts {
	m := &memProducts{items: map[primitive.ObjectID]*models.Product{}}
	for i := range ps {
		p := ps[i]
		m.items[p.ID] = &p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.AssignIDs()
	p.Reviews = []models.Review{}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[objID]
	if !ok || p.IsDeleted {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Reviews = append([]models.Review(nil), p.Reviews...)
	return &cp, nil
}

func (m *memProducts) FindAll(_ context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.Product{}
	for _, p := range m.items {
		if !p.IsDeleted {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.Hex() < all[j].ID.Hex() })

	start := (q.Page - 1) * q.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + q.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memProducts) Update(_ context.Context, id string, u models.ProductUpdate) (*models.Product, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[objID]
	if !ok || p.IsDeleted {
		return nil, repository.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.BasePrice != nil {
		p.BasePrice = *u.BasePrice
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) SoftDelete(_ context.Context, id string) error {
	objID, err := lookupID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[objID]
	if !ok || p.IsDeleted {
		return repository.ErrNotFound
	}
	p.IsDeleted = true
	return nil
}

func (m *memProducts) SaveReviews(_ context.Context, p *models.Product, prevCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.staleOnce {
		m.staleOnce = false
		return repository.ErrStale
	}
	if stored.NumReviews != prevCount {
		return repository.ErrStale
	}
	stored.Reviews = append([]models.Review(nil), p.Reviews...)
	stored.NumReviews = p.NumReviews
	stored.AverageRating = p.AverageRating
	return nil
}

func (m *memProducts) DecrementStock(_ context.Context, productID, skuID primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[productID]
	if !ok {
		return repository.ErrNotFound
	}
	sku, ok := p.FindSKU(skuID)
	if !ok || sku.Stock < qty {
		return repository.ErrStale
	}
	sku.Stock -= qty
	return nil
}

// --- orders ---

type memOrders struct {
	mu    sync.Mutex
	items []models.Order
	err   error
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.items = append(m.items, *o)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	objID, err := lookupID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.ID == objID {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memOrders) FindByUser(_ context.Context, user primitive.ObjectID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.items {
		if o.User == user {
			out = append(out, o)
		}
	}
	return out, nil
}

var errStoreDown = errors.New("store unavailable")
