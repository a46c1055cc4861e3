package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrOrderNotFound = errors.New("payment order not found")

// OrderStore holds in-flight payment orders. Orders are transient: once
// verification approves the invoice the cached order only serves payment
// links until it expires.
type OrderStore interface {
	Save(ctx context.Context, appointmentID uuid.UUID, order *Order) error
	ByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Order, error)
	ByOrderID(ctx context.Context, orderID string) (uuid.UUID, *Order, error)
}

type redisOrderStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOrderStore(client *redis.Client, ttl time.Duration) OrderStore {
	return &redisOrderStore{client: client, ttl: ttl}
}

type cachedOrder struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Order         Order     `json:"order"`
}

func orderKey(orderID string) string {
	return "payment:order:" + orderID
}

func appointmentKey(appointmentID uuid.UUID) string {
	return "payment:appointment:" + appointmentID.String()
}

func (s *redisOrderStore) Save(ctx context.Context, appointmentID uuid.UUID, order *Order) error {
	data, err := json.Marshal(cachedOrder{AppointmentID: appointmentID, Order: *order})
	if err != nil {
		return fmt.Errorf("marshal cached order: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, orderKey(order.ID), data, s.ttl)
	pipe.Set(ctx, appointmentKey(appointmentID), order.ID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache payment order: %w", err)
	}
	return nil
}

func (s *redisOrderStore) ByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Order, error) {
	orderID, err := s.client.Get(ctx, appointmentKey(appointmentID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order id: %w", err)
	}

	_, order, err := s.ByOrderID(ctx, orderID)
	return order, err
}

func (s *redisOrderStore) ByOrderID(ctx context.Context, orderID string) (uuid.UUID, *Order, error) {
	data, err := s.client.Get(ctx, orderKey(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, nil, ErrOrderNotFound
		}
		return uuid.Nil, nil, fmt.Errorf("load cached order: %w", err)
	}

	var cached cachedOrder
	if err := json.Unmarshal(data, &cached); err != nil {
		return uuid.Nil, nil, fmt.Errorf("decode cached order: %w", err)
	}
	return cached.AppointmentID, &cached.Order, nil
}
