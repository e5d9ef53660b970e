package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelviera/shoplane-backend/internal/cart"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines the order operations needed by the orders controller.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListForSeller(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
}

type orderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	FindForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, expected, next enums.OrderStatus) (int64, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
	MarkOutOfStock(ctx context.Context, productID uuid.UUID) error
	WithTx(tx *gorm.DB) *Repository
}

type cartRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ClearItems(ctx context.Context, userID uuid.UUID) error
	WithTx(tx *gorm.DB) *cart.Repository
}

type addressReader interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
}

type sellerResolver interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	OrderRepo   orderRepository
	CartRepo    cartRepository
	AddressRepo addressReader
	SellerRepo  sellerResolver
	TxRunner    txRunner
}

type service struct {
	orders    orderRepository
	carts     cartRepository
	addresses addressReader
	sellers   sellerResolver
	tx        txRunner
}

// NewService constructs an orders service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository is required")
	}
	if params.AddressRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "address repository is required")
	}
	if params.SellerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository is required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	return &service{
		orders:    params.OrderRepo,
		carts:     params.CartRepo,
		addresses: params.AddressRepo,
		sellers:   params.SellerRepo,
		tx:        params.TxRunner,
	}, nil
}

// Create places an order from the caller's cart. Prices come from the catalog
// at placement time, never from the client or the cart snapshot; stock is
// decremented with a non-negative guard; header, lines, stock movements and
// the cart wipe all commit together.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*OrderDTO, error) {
	shippingAddress, err := s.resolveShipping(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	userCart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		total := decimal.Zero

		for i := range userCart.Items {
			line := &userCart.Items[i]

			product, err := repo.FindProduct(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("product %s is no longer available", line.ProductID))
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			if !product.Status.Purchasable() {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("product %q is no longer available", product.Name))
			}

			taken, err := repo.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if !taken {
				return pkgerrors.InsufficientStock(product.Stock)
			}
			if err := repo.MarkOutOfStock(ctx, product.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flag empty stock")
			}

			order.Items = append(order.Items, models.OrderItem{
				ProductID: product.ID,
				SellerID:  product.SellerID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		order.TotalPrice = total
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := s.carts.WithTx(tx).ClearItems(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

// Get returns one order scoped to its buyer; another user's order is not found.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.orders.FindForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return FromModel(order), nil
}

// ListMine returns one page of the buyer's order history.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	rows, err := s.orders.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildPage(rows, params), nil
}

// ListForSeller returns one page of orders that include the seller's lines.
func (s *service) ListForSeller(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.orders.ListBySeller(ctx, seller.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller orders")
	}
	return buildPage(rows, params), nil
}

// UpdateStatus moves an order forward along its lifecycle. The seller must
// own a line of the order; delivered and canceled are terminal.
func (s *service) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	if !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindForSeller(ctx, seller.ID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !order.Status.CanTransitionTo(req.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, req.Status))
	}

	affected, err := s.orders.UpdateStatus(ctx, seller.ID, orderID, order.Status, req.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if affected == 0 {
		// A concurrent transition won; the expected status no longer matches.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	order, err = s.orders.FindForSeller(ctx, seller.ID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return FromModel(order), nil
}

func (s *service) resolveShipping(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (string, error) {
	hasAddressID := req.AddressID != nil && *req.AddressID != uuid.Nil
	hasFreeForm := req.ShippingAddress != nil && strings.TrimSpace(*req.ShippingAddress) != ""

	switch {
	case hasAddressID && hasFreeForm:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provide either address_id or shipping_address, not both")
	case hasAddressID:
		address, err := s.addresses.FindByID(ctx, userID, *req.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
		}
		return formatAddress(address), nil
	case hasFreeForm:
		return strings.TrimSpace(*req.ShippingAddress), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
}

func (s *service) resolveSeller(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "storefront required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	return seller, nil
}

func buildPage(rows []models.Order, params pagination.Params) *pagination.Page[OrderDTO] {
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page
}

func formatAddress(a *models.Address) string {
	parts := []string{a.Line1}
	if a.Line2 != nil && *a.Line2 != "" {
		parts = append(parts, *a.Line2)
	}
	parts = append(parts, fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode), a.Country)
	return strings.Join(parts, ", ")
}
