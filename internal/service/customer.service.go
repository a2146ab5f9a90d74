package service

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"shop-orders/internal/database"
	"shop-orders/internal/domain"
	"shop-orders/internal/repo"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, email, fullName string, points int) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
}

type customerService struct {
	db        *sql.DB
	customers repo.CustomerRepo
	opts      Options
}

func NewCustomerService(db *sql.DB, customers repo.CustomerRepo, opts Options) CustomerService {
	return &customerService{db: db, customers: customers, opts: opts.withDefaults()}
}

func (s *customerService) CreateCustomer(ctx context.Context, email, fullName string, points int) (*domain.Customer, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, domain.Invalidf("invalid email %q", email)
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, domain.Invalidf("full name is required")
	}
	if points < 0 {
		return nil, domain.Invalidf("points must not be negative")
	}

	c := &domain.Customer{
		ID:        uuid.New(),
		Email:     strings.ToLower(addr.Address),
		FullName:  strings.TrimSpace(fullName),
		Points:    points,
		CreatedAt: s.opts.Now(),
	}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.customers.Create(ctx, tx, c)
	})
	if database.IsUniqueViolation(err, "customers_email_key") {
		return nil, domain.Invalidf("email %s is already registered", c.Email)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	c, err := s.customers.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCustomerNotFound.Withf("customer %s not found", id)
	}
	return c, nil
}
