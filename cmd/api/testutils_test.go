package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"medimart/internal/auth"
	"medimart/internal/domain/accounts"
	"medimart/internal/domain/banners"
	"medimart/internal/domain/carts"
	"medimart/internal/domain/catalog"
	"medimart/internal/domain/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	app      *application
	handler  http.Handler
	accounts *fakeAccounts
	catalog  *fakeCatalog
	banners  *fakeBanners
	carts    *fakeCarts
	mailer   *fakeMailer
}

func newTestApplication(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		accounts: newFakeAccounts(),
		catalog:  &fakeCatalog{products: map[int64]*catalog.Product{}},
		banners:  &fakeBanners{},
		carts:    &fakeCarts{},
		mailer:   &fakeMailer{},
	}

	env.app = &application{
		config: config{
			env: "test",
			auth: authConfig{
				basic: basicConfig{user: "ops", pass: "secret"},
			},
		},
		logger: zap.NewNop().Sugar(),
		store: &storage.Container{
			Accounts: env.accounts,
			Catalog:  env.catalog,
			Banners:  env.banners,
			Carts:    env.carts,
		},
		mailer:        env.mailer,
		authenticator: auth.NewJWTAuthenticator("test-secret", "test-refresh-secret", "medimart", "medimart", time.Hour, time.Hour),
	}
	env.handler = env.app.mount()
	return env
}

// addAccount stores an account and returns a bearer token for it.
func (e *testEnv) addAccount(t *testing.T, role accounts.Role, status accounts.Status) (*accounts.Account, string) {
	t.Helper()

	a := e.accounts.add(&accounts.Account{
		Name:    "Test " + string(role),
		Email:   strings.ToLower(string(role)) + "@example.com",
		Phone:   "9800000000",
		Address: "Main street",
		Role:    role,
		Status:  status,
	})
	require.NoError(t, a.Password.Set("password123"))

	access, _, err := e.app.authenticator.GenerateTokens(a.ID, string(a.Role))
	require.NoError(t, err)
	return a, access
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the "data" member of a success envelope.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

type fakeAccounts struct {
	mu          sync.Mutex
	nextID      int64
	byID        map[int64]*accounts.Account
	events      []accounts.StatusEvent
	refresh     map[int64]string
	changeCalls int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[int64]*accounts.Account{}, refresh: map[int64]string{}}
}

func (f *fakeAccounts) add(a *accounts.Account) *accounts.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	f.byID[a.ID] = a
	return a
}

func (f *fakeAccounts) Create(_ context.Context, a *accounts.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return accounts.ErrDuplicateEmail
		}
		if existing.Phone == a.Phone {
			return accounts.ErrDuplicatePhone
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.Status = accounts.StatusPending
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAccounts) EnsureAdmin(_ context.Context, a *accounts.Account) error {
	a.Role, a.Status = accounts.RoleAdmin, accounts.StatusApproved
	f.add(a)
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (f *fakeAccounts) List(_ context.Context, filters accounts.ListFilters, limit, offset int) ([]*accounts.Account, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*accounts.Account
	for _, a := range f.byID {
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		if filters.Role != "" && a.Role != filters.Role {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeAccounts) ChangeStatus(_ context.Context, id int64, to accounts.Status, changedBy int64) (*accounts.Account, accounts.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changeCalls++
	a, ok := f.byID[id]
	if !ok {
		return nil, "", accounts.ErrNotFound
	}
	if err := accounts.ValidateTransition(a.Status, to); err != nil {
		return nil, "", err
	}
	from := a.Status
	a.Status = to
	actor := changedBy
	f.events = append(f.events, accounts.StatusEvent{
		ID: int64(len(f.events) + 1), AccountID: id, FromStatus: from, ToStatus: to, ChangedBy: &actor,
	})
	return a, from, nil
}

func (f *fakeAccounts) StatusHistory(_ context.Context, id int64) ([]accounts.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []accounts.StatusEvent{}
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].AccountID == id {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeAccounts) SaveRefreshToken(_ context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[id] = token
	return nil
}

func (f *fakeAccounts) RefreshTokenMatches(_ context.Context, id int64, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh[id] == token && token != "", nil
}

func (f *fakeAccounts) DeleteRefreshToken(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, id)
	return nil
}

type fakeCatalog struct {
	mu        sync.Mutex
	products  map[int64]*catalog.Product
	created   []catalog.NewProduct
	patches   []catalog.ProductPatch
	createErr error
	skus      []string
}

func (f *fakeCatalog) put(p *catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeCatalog) CreateProduct(_ context.Context, in catalog.NewProduct) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	p := &catalog.Product{
		ID:           int64(len(f.products) + 1),
		Name:         in.Name,
		Category:     in.Category,
		SKU:          catalog.NextSKU(f.skus),
		MRP:          in.MRP,
		SellPrice:    in.SellPrice,
		CostPrice:    in.CostPrice,
		Stock:        in.Stock,
		Status:       in.Status,
		Availability: in.Availability,
	}
	f.skus = append(f.skus, p.SKU)
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64, publishedOnly bool) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || (publishedOnly && !p.Status) {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ListProducts(_ context.Context, filters catalog.ListFilters, limit, offset int) ([]*catalog.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*catalog.Product
	for _, p := range f.products {
		if filters.PublishedOnly && !p.Status {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (f *fakeCatalog) UpdateProduct(_ context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	f.patches = append(f.patches, patch)
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	return p, nil
}

func (f *fakeCatalog) DeleteProduct(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeCatalog) ListSKUs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.skus...), nil
}

func (f *fakeCatalog) ListBrandNames(context.Context) ([]string, error) {
	return []string{"Cipla", "Sun Pharma"}, nil
}

func (f *fakeCatalog) ListGenericNames(context.Context) ([]string, error) {
	return []string{"Paracetamol"}, nil
}

// fakeBanners records what handlers pass in and returns canned errors; the
// visibility rule itself is covered by the repository tests.
type fakeBanners struct {
	mu        sync.Mutex
	created   []banners.NewBanner
	updated   []banners.Patch
	createErr error
	updateErr error
	current   *banners.Banner
}

func (f *fakeBanners) Create(_ context.Context, in banners.NewBanner) (*banners.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &banners.Banner{
		ID: int64(len(f.created)), Kind: in.Kind, Title: in.Title, ImageURL: in.ImageURL,
		Hyperlink: in.Hyperlink, Category: in.Category, IsVisible: in.IsVisible,
	}, nil
}

func (f *fakeBanners) Get(_ context.Context, kind banners.Kind, id int64) (*banners.Banner, error) {
	return nil, banners.ErrNotFound
}

func (f *fakeBanners) Update(_ context.Context, kind banners.Kind, id int64, patch banners.Patch) (*banners.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	b := &banners.Banner{ID: id, Kind: kind}
	if patch.IsVisible != nil {
		b.IsVisible = *patch.IsVisible
	}
	return b, nil
}

func (f *fakeBanners) SetVisibility(ctx context.Context, kind banners.Kind, id int64, visible bool) (*banners.Banner, error) {
	return f.Update(ctx, kind, id, banners.Patch{IsVisible: &visible})
}

func (f *fakeBanners) Delete(_ context.Context, kind banners.Kind, id int64) error {
	return banners.ErrNotFound
}

func (f *fakeBanners) List(context.Context, banners.Kind) ([]banners.Banner, error) {
	return []banners.Banner{}, nil
}

func (f *fakeBanners) ListVisible(context.Context, banners.Kind) ([]banners.Banner, error) {
	return []banners.Banner{}, nil
}

func (f *fakeBanners) CurrentVisible(context.Context, banners.Kind) (*banners.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

type fakeCarts struct {
	mu     sync.Mutex
	lines  []carts.Line
	addErr error
}

func (f *fakeCarts) View(context.Context, int64) (*carts.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return carts.Summarize(append([]carts.Line(nil), f.lines...)), nil
}

func (f *fakeCarts) AddItem(_ context.Context, _ int64, productID int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.lines = append(f.lines, carts.Line{
		ProductID: productID, Name: "Paracetamol 500mg", SKU: "SKU-0001",
		UnitPrice: decimal.RequireFromString("12.50"), Quantity: qty, Availability: true,
	})
	return nil
}

func (f *fakeCarts) SetQuantity(_ context.Context, _ int64, productID int64, qty int) error {
	return carts.ErrItemNotFound
}

func (f *fakeCarts) RemoveItem(context.Context, int64, int64) error {
	return carts.ErrItemNotFound
}

func (f *fakeCarts) Clear(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	sendF func() error
}

func (m *fakeMailer) Send(templateFile, username, email string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, templateFile+":"+email)
	if m.sendF != nil {
		return m.sendF()
	}
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
