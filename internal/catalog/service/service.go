package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/validate"

	"github.com/prometheus/client_golang/prometheus"
)

// Store is the persistence contract both backends satisfy. Malformed ids are
// reported as catalog.ErrInvalidID and absent records as catalog.ErrNotFound
// by the backend itself; each engine has its own notion of a well-formed id,
// and nothing above this interface needs to know which engine is active.
type Store interface {
	List(ctx context.Context) ([]catalog.Product, error)
	GetByID(ctx context.Context, id string) (catalog.Product, error)
	InsertMany(ctx context.Context, items []catalog.NewProduct) ([]catalog.Product, error)
	UpdateByID(ctx context.Context, id string, fields catalog.NewProduct) (catalog.Product, error)
	DeleteByID(ctx context.Context, id string) (catalog.Product, error)
	Reset(ctx context.Context) error
	Health(ctx context.Context) error
}

type UsersFetcher interface {
	Count(ctx context.Context) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, event catalog.Event) error
}

type Service struct {
	store   Store
	users   UsersFetcher
	pub     Publisher
	logger  *slog.Logger
	created prometheus.Counter
	deleted prometheus.Counter
}

func New(store Store, users UsersFetcher, pub Publisher, logger *slog.Logger, created, deleted prometheus.Counter) *Service {
	return &Service{
		store:   store,
		users:   users,
		pub:     pub,
		logger:  logger,
		created: created,
		deleted: deleted,
	}
}

// CreateProducts validates the whole batch, then persists it all-or-nothing.
// Any validation failure short-circuits before the store is touched.
func (s *Service) CreateProducts(ctx context.Context, inputs []catalog.ProductInput) ([]catalog.Product, error) {
	items, err := validate.Batch(inputs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []catalog.Product{}, nil
	}

	created, err := s.store.InsertMany(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("store insert: %w", err)
	}

	for _, p := range created {
		s.publish(ctx, catalog.Event{
			EventType: catalog.EventCreated,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Timestamp: time.Now().UTC(),
		})
	}

	s.created.Add(float64(len(created)))
	return created, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}
	return list, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, input catalog.ProductInput) (catalog.Product, error) {
	fields, err := validate.Single(input)
	if err != nil {
		return catalog.Product{}, err
	}
	return s.store.UpdateByID(ctx, id, fields)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) (catalog.Product, error) {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}

	s.publish(ctx, catalog.Event{
		EventType: catalog.EventDeleted,
		ProductID: deleted.ID,
		Name:      deleted.Name,
		Timestamp: time.Now().UTC(),
	})

	s.deleted.Inc()
	return deleted, nil
}

func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("store reset: %w", err)
	}

	s.publish(ctx, catalog.Event{
		EventType: catalog.EventReset,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// ListWithUsers composes the local catalog with the remote user count. The
// value of this endpoint is the combination, so a failed aggregation fetch
// fails the whole call; partial success is never surfaced as success.
func (s *Service) ListWithUsers(ctx context.Context) ([]catalog.Product, int, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("store list: %w", err)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", catalog.ErrUsersUnavailable, err)
	}

	return list, count, nil
}

func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

// publish never fails the request that triggered it. A broker outage loses
// an audit event, not a write.
func (s *Service) publish(ctx context.Context, event catalog.Event) {
	if err := s.pub.Publish(ctx, event); err != nil {
		s.logger.Error("publish event failed",
			"event_type", event.EventType,
			"product_id", event.ProductID,
			"error", err,
		)
	}
}
