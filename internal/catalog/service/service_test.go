package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/validate"

	"github.com/prometheus/client_golang/prometheus"
)

func price(v float64) *float64 { return &v }

type mockStore struct {
	listFn       func(ctx context.Context) ([]catalog.Product, error)
	getFn        func(ctx context.Context, id string) (catalog.Product, error)
	insertManyFn func(ctx context.Context, items []catalog.NewProduct) ([]catalog.Product, error)
	updateFn     func(ctx context.Context, id string, fields catalog.NewProduct) (catalog.Product, error)
	deleteFn     func(ctx context.Context, id string) (catalog.Product, error)
	resetFn      func(ctx context.Context) error
	healthFn     func(ctx context.Context) error

	insertCalls int
}

func (m *mockStore) List(ctx context.Context) ([]catalog.Product, error) { return m.listFn(ctx) }
func (m *mockStore) GetByID(ctx context.Context, id string) (catalog.Product, error) {
	return m.getFn(ctx, id)
}
func (m *mockStore) InsertMany(ctx context.Context, items []catalog.NewProduct) ([]catalog.Product, error) {
	m.insertCalls++
	return m.insertManyFn(ctx, items)
}
func (m *mockStore) UpdateByID(ctx context.Context, id string, fields catalog.NewProduct) (catalog.Product, error) {
	return m.updateFn(ctx, id, fields)
}
func (m *mockStore) DeleteByID(ctx context.Context, id string) (catalog.Product, error) {
	return m.deleteFn(ctx, id)
}
func (m *mockStore) Reset(ctx context.Context) error  { return m.resetFn(ctx) }
func (m *mockStore) Health(ctx context.Context) error { return m.healthFn(ctx) }

type mockUsers struct {
	count int
	err   error
}

func (m *mockUsers) Count(_ context.Context) (int, error) { return m.count, m.err }

type mockPublisher struct {
	events []catalog.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event catalog.Event) error {
	m.events = append(m.events, event)
	return m.err
}

func defaultStore() *mockStore {
	return &mockStore{
		listFn: func(_ context.Context) ([]catalog.Product, error) {
			return []catalog.Product{}, nil
		},
		getFn: func(_ context.Context, id string) (catalog.Product, error) {
			return catalog.Product{ID: id, Name: "Pen", Price: 1.5}, nil
		},
		insertManyFn: func(_ context.Context, items []catalog.NewProduct) ([]catalog.Product, error) {
			created := make([]catalog.Product, len(items))
			for i, item := range items {
				created[i] = catalog.Product{ID: strconv.Itoa(i + 1), Name: item.Name, Price: item.Price}
			}
			return created, nil
		},
		updateFn: func(_ context.Context, id string, fields catalog.NewProduct) (catalog.Product, error) {
			return catalog.Product{ID: id, Name: fields.Name, Price: fields.Price}, nil
		},
		deleteFn: func(_ context.Context, id string) (catalog.Product, error) {
			return catalog.Product{ID: id, Name: "Pen", Price: 1.5}, nil
		},
		resetFn:  func(_ context.Context) error { return nil },
		healthFn: func(_ context.Context) error { return nil },
	}
}

func newTestService(store *mockStore, users *mockUsers, pub *mockPublisher) *Service {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return New(
		store, users, pub, logger,
		prometheus.NewCounter(prometheus.CounterOpts{Name: "t_created", Help: "t"}),
		prometheus.NewCounter(prometheus.CounterOpts{Name: "t_deleted", Help: "t"}),
	)
}

func TestCreateProducts(t *testing.T) {
	errDB := errors.New("db down")

	tests := []struct {
		name        string
		inputs      []catalog.ProductInput
		storeErr    error
		wantErr     error
		wantCreated int
		wantIndexes []int
	}{
		{
			name: "valid batch",
			inputs: []catalog.ProductInput{
				{Name: "Pen", Price: price(1.5)},
				{Name: "Pencil", Price: price(0.5)},
			},
			wantCreated: 2,
		},
		{
			name: "invalid element short-circuits before the store",
			inputs: []catalog.ProductInput{
				{Name: "Pen", Price: price(1.5)},
				{Name: "", Price: price(2)},
			},
			wantIndexes: []int{2},
		},
		{
			name: "store error is wrapped",
			inputs: []catalog.ProductInput{
				{Name: "Pen", Price: price(1.5)},
			},
			storeErr: errDB,
			wantErr:  errDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := defaultStore()
			if tt.storeErr != nil {
				store.insertManyFn = func(_ context.Context, _ []catalog.NewProduct) ([]catalog.Product, error) {
					return nil, tt.storeErr
				}
			}
			pub := &mockPublisher{}
			svc := newTestService(store, &mockUsers{}, pub)

			created, err := svc.CreateProducts(context.Background(), tt.inputs)

			if len(tt.wantIndexes) > 0 {
				var verrs validate.Errors
				if !errors.As(err, &verrs) {
					t.Fatalf("want validate.Errors, got %v", err)
				}
				if len(verrs) != len(tt.wantIndexes) {
					t.Fatalf("want %d failures, got %v", len(tt.wantIndexes), verrs)
				}
				for i, want := range tt.wantIndexes {
					if verrs[i].Index != want {
						t.Fatalf("failure %d: want index %d, got %d", i, want, verrs[i].Index)
					}
				}
				if store.insertCalls != 0 {
					t.Fatalf("store must not be called on validation failure, got %d calls", store.insertCalls)
				}
				return
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error wrapping %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(created) != tt.wantCreated {
				t.Fatalf("want %d created, got %d", tt.wantCreated, len(created))
			}
			if len(pub.events) != tt.wantCreated {
				t.Fatalf("want %d events, got %d", tt.wantCreated, len(pub.events))
			}
			for i, event := range pub.events {
				if event.EventType != catalog.EventCreated {
					t.Fatalf("event %d: want type %q, got %q", i, catalog.EventCreated, event.EventType)
				}
			}
		})
	}
}

func TestCreateProducts_PublishFail_StillReturnsProducts(t *testing.T) {
	store := defaultStore()
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := newTestService(store, &mockUsers{}, pub)

	created, err := svc.CreateProducts(context.Background(), []catalog.ProductInput{
		{Name: "Widget", Price: price(3)},
	})
	if err != nil {
		t.Fatalf("expected no error despite publish failure, got: %v", err)
	}
	if len(created) != 1 || created[0].Name != "Widget" {
		t.Fatalf("want one Widget, got %v", created)
	}
}

func TestUpdateProduct(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		input    catalog.ProductInput
		storeErr error
		wantErr  error
		wantName string
	}{
		{
			name:     "success",
			id:       "7",
			input:    catalog.ProductInput{Name: "Marker", Price: price(2.5)},
			wantName: "Marker",
		},
		{
			name:    "validation failure skips the store",
			id:      "7",
			input:   catalog.ProductInput{Name: "Marker", Price: price(0)},
			wantErr: validate.Error{Index: 1, Detail: "price is required"},
		},
		{
			name:     "not found",
			id:       "999",
			input:    catalog.ProductInput{Name: "Marker", Price: price(2.5)},
			storeErr: catalog.ErrNotFound,
			wantErr:  catalog.ErrNotFound,
		},
		{
			name:     "invalid id",
			id:       "abc",
			input:    catalog.ProductInput{Name: "Marker", Price: price(2.5)},
			storeErr: catalog.ErrInvalidID,
			wantErr:  catalog.ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := defaultStore()
			if tt.storeErr != nil {
				store.updateFn = func(_ context.Context, _ string, _ catalog.NewProduct) (catalog.Product, error) {
					return catalog.Product{}, tt.storeErr
				}
			}
			svc := newTestService(store, &mockUsers{}, &mockPublisher{})

			p, err := svc.UpdateProduct(context.Background(), tt.id, tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != tt.wantName {
				t.Fatalf("want name %q, got %q", tt.wantName, p.Name)
			}
		})
	}
}

func TestDeleteProduct(t *testing.T) {
	store := defaultStore()
	pub := &mockPublisher{}
	svc := newTestService(store, &mockUsers{}, pub)

	deleted, err := svc.DeleteProduct(context.Background(), "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted.ID != "4" {
		t.Fatalf("want deleted id 4, got %q", deleted.ID)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != catalog.EventDeleted {
		t.Fatalf("want one %q event, got %v", catalog.EventDeleted, pub.events)
	}
}

func TestDeleteProduct_NotFound_NoEvent(t *testing.T) {
	store := defaultStore()
	store.deleteFn = func(_ context.Context, _ string) (catalog.Product, error) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	pub := &mockPublisher{}
	svc := newTestService(store, &mockUsers{}, pub)

	if _, err := svc.DeleteProduct(context.Background(), "999"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("want no events on failed delete, got %v", pub.events)
	}
}

func TestListWithUsers(t *testing.T) {
	catalogList := []catalog.Product{
		{ID: "1", Name: "Pen", Price: 1.5},
		{ID: "2", Name: "Pencil", Price: 0.5},
	}

	tests := []struct {
		name      string
		listErr   error
		users     *mockUsers
		wantErr   error
		wantCount int
	}{
		{
			name:      "combines list and count",
			users:     &mockUsers{count: 3},
			wantCount: 3,
		},
		{
			// The endpoint's value is the combination, so a downstream
			// failure fails the whole call even though the list succeeded.
			name:    "downstream failure fails the call",
			users:   &mockUsers{err: errors.New("connection refused")},
			wantErr: catalog.ErrUsersUnavailable,
		},
		{
			name:      "shape mismatch degrades to zero",
			users:     &mockUsers{count: 0},
			wantCount: 0,
		},
		{
			name:    "store failure",
			listErr: errors.New("db down"),
			users:   &mockUsers{count: 3},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := defaultStore()
			if tt.listErr != nil {
				store.listFn = func(_ context.Context) ([]catalog.Product, error) {
					return nil, tt.listErr
				}
			} else {
				store.listFn = func(_ context.Context) ([]catalog.Product, error) {
					return catalogList, nil
				}
			}
			svc := newTestService(store, tt.users, &mockPublisher{})

			list, count, err := svc.ListWithUsers(context.Background())

			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if errors.Is(tt.wantErr, catalog.ErrUsersUnavailable) && !errors.Is(err, catalog.ErrUsersUnavailable) {
					t.Fatalf("want ErrUsersUnavailable, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(list) != len(catalogList) {
				t.Fatalf("want %d products, got %d", len(catalogList), len(list))
			}
			if count != tt.wantCount {
				t.Fatalf("want count %d, got %d", tt.wantCount, count)
			}
		})
	}
}

func TestReset(t *testing.T) {
	store := defaultStore()
	pub := &mockPublisher{}
	svc := newTestService(store, &mockUsers{}, pub)

	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != catalog.EventReset {
		t.Fatalf("want one %q event, got %v", catalog.EventReset, pub.events)
	}
	if pub.events[0].Timestamp.After(time.Now().UTC()) {
		t.Fatal("event timestamp is in the future")
	}
}

func TestHealth_PassesThrough(t *testing.T) {
	store := defaultStore()
	store.healthFn = func(_ context.Context) error {
		return catalog.ErrStoreUnavailable
	}
	svc := newTestService(store, &mockUsers{}, &mockPublisher{})

	if err := svc.Health(context.Background()); !errors.Is(err, catalog.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}
