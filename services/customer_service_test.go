package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing/internal/status"
)

func TestRegister(t *testing.T) {
	store := newMemoryStore()
	svc := NewCustomerService(store)

	customer, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Phone:    "5551234567",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", customer.Name)
	assert.Equal(t, "5551234567", customer.Phone)
	assert.NotEmpty(t, customer.ID)
}

func TestRegister_DefaultsName(t *testing.T) {
	store := newMemoryStore()
	svc := NewCustomerService(store)

	customer, err := svc.Register(context.Background(), RegisterRequest{
		Phone:    "5551234567",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "Customer 5551234567", customer.Name)
}

func TestRegister_Validation(t *testing.T) {
	store := newMemoryStore()
	svc := NewCustomerService(store)

	_, err := svc.Register(context.Background(), RegisterRequest{Phone: "123", Password: "correct-horse"})
	assert.ErrorIs(t, err, status.ErrInvalidInput)

	_, err = svc.Register(context.Background(), RegisterRequest{Phone: "5551234567", Password: "short"})
	assert.ErrorIs(t, err, status.ErrInvalidInput)
}

func TestRegister_DuplicatePhone(t *testing.T) {
	store := newMemoryStore()
	svc := NewCustomerService(store)

	_, err := svc.Register(context.Background(), RegisterRequest{Phone: "5551234567", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Phone: "5551234567", Password: "correct-horse"})
	assert.ErrorIs(t, err, status.ErrInvalidInput)
}

func TestGetOrCreateByPhone_IsIdempotent(t *testing.T) {
	store := newMemoryStore()
	svc := NewCustomerService(store)

	first, err := svc.GetOrCreateByPhone(context.Background(), "5551234567")
	require.NoError(t, err)
	second, err := svc.GetOrCreateByPhone(context.Background(), "5551234567")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}
