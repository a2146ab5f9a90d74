package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"shop-orders/internal/database"
	"shop-orders/internal/domain"
	"shop-orders/internal/repo"
)

type ProductWithPrice struct {
	Product domain.Product
	// Price is nil when the product has no active price.
	Price  *domain.ProductPrice
	Prices []domain.ProductPrice
}

type ProductService interface {
	// CreateProduct stores the product with its first price, which becomes
	// both the default and the active one.
	CreateProduct(ctx context.Context, name string, stock int, price decimal.Decimal) (*ProductWithPrice, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductWithPrice, error)
	ListProducts(ctx context.Context, page Page) ([]domain.Product, error)
	// SetActivePrice adds a new active price. Earlier prices stay as history.
	SetActivePrice(ctx context.Context, productID uuid.UUID, price decimal.Decimal) (*domain.ProductPrice, error)
	Restock(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Product, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}

type productService struct {
	db       *sql.DB
	products repo.ProductRepo
	opts     Options
}

func NewProductService(db *sql.DB, products repo.ProductRepo, opts Options) ProductService {
	return &productService{db: db, products: products, opts: opts.withDefaults()}
}

func (s *productService) CreateProduct(ctx context.Context, name string, stock int, price decimal.Decimal) (*ProductWithPrice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalidf("product name is required")
	}
	if stock < 0 {
		return nil, domain.Invalidf("stock must not be negative")
	}
	if price.IsNegative() {
		return nil, domain.Invalidf("price must not be negative")
	}

	now := s.opts.Now()
	p := domain.Product{ID: uuid.New(), Name: name, Stock: stock, CreatedAt: now, UpdatedAt: now}
	pp := domain.ProductPrice{
		ID:        uuid.New(),
		ProductID: p.ID,
		Price:     domain.RoundMoney(price),
		IsDefault: true,
		IsActive:  true,
		CreatedAt: now,
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.products.Create(ctx, tx, &p); err != nil {
			return err
		}
		return s.products.CreatePrice(ctx, tx, &pp)
	})
	if err != nil {
		return nil, err
	}

	zlog.Ctx(ctx).Info().Str("product_id", p.ID.String()).Str("name", p.Name).Msg("product created")
	return &ProductWithPrice{Product: p, Price: &pp, Prices: []domain.ProductPrice{pp}}, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductWithPrice, error) {
	p, err := s.products.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProductNotFound.Withf("product %s not found", id)
	}
	prices, err := s.products.ListPrices(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &ProductWithPrice{Product: *p, Prices: prices}
	for i := range prices {
		if prices[i].IsActive {
			out.Price = &prices[i]
		}
	}
	if out.Prices == nil {
		out.Prices = []domain.ProductPrice{}
	}
	return out, nil
}

func (s *productService) ListProducts(ctx context.Context, page Page) ([]domain.Product, error) {
	page = page.normalize()
	products, err := s.products.List(ctx, page.Size, (page.Number-1)*page.Size)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *productService) SetActivePrice(ctx context.Context, productID uuid.UUID, price decimal.Decimal) (*domain.ProductPrice, error) {
	if price.IsNegative() {
		return nil, domain.Invalidf("price must not be negative")
	}

	pp := &domain.ProductPrice{
		ID:        uuid.New(),
		ProductID: productID,
		Price:     domain.RoundMoney(price),
		IsActive:  true,
		CreatedAt: s.opts.Now(),
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.products.FindByIdForUpdate(ctx, tx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrProductNotFound.Withf("product %s not found", productID)
		}
		if err := s.products.DeactivatePrices(ctx, tx, productID); err != nil {
			return err
		}
		return s.products.CreatePrice(ctx, tx, pp)
	})
	if err != nil {
		return nil, err
	}

	zlog.Ctx(ctx).Info().Str("product_id", productID.String()).Str("price", pp.Price.StringFixed(2)).Msg("active price changed")
	return pp, nil
}

func (s *productService) Restock(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, domain.Invalidf("restock quantity must be positive")
	}

	var p *domain.Product
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		p, err = s.products.FindByIdForUpdate(ctx, tx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrProductNotFound.Withf("product %s not found", productID)
		}
		if err := s.products.AdjustStock(ctx, tx, productID, quantity); err != nil {
			return err
		}
		p.Stock += quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		deleted, err := s.products.SoftDelete(ctx, tx, productID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrProductNotFound.Withf("product %s not found", productID)
		}
		return nil
	})
}
