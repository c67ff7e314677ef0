package services

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"event-ticketing/internal/status"
	"event-ticketing/models"
)

// CustomerService covers the thin account surface: implicit creation by
// phone during booking, and explicit registration with a password.
type CustomerService struct {
	store Store
}

func NewCustomerService(store Store) *CustomerService {
	return &CustomerService{store: store}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *CustomerService) Register(ctx context.Context, req RegisterRequest) (*models.Customer, error) {
	if !phonePattern.MatchString(req.Phone) {
		return nil, fmt.Errorf("%w: phone must be a 10-digit number", status.ErrInvalidInput)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", status.ErrInvalidInput)
	}
	if req.Name == "" {
		req.Name = "Customer " + req.Phone
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateCustomer(ctx, req.Name, req.Email, req.Phone, string(hash))
}

func (s *CustomerService) GetOrCreateByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone must be a 10-digit number", status.ErrInvalidInput)
	}
	return s.store.GetOrCreateCustomerByPhone(ctx, phone)
}
