// Package broker provides types and interfaces for order execution.
package broker

import (
	"context"
	"errors"
	"time"
)

// Broker-specific errors.
var (
	// ErrOrderNotFound indicates the order was not found.
	ErrOrderNotFound = errors.New("broker: order not found")
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("broker: invalid symbol")
	// ErrInvalidQuantity indicates an invalid quantity.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrInvalidPrice indicates an invalid price.
	ErrInvalidPrice = errors.New("broker: invalid price")
	// ErrInsufficientFunds indicates insufficient funds for the order.
	ErrInsufficientFunds = errors.New("broker: insufficient funds")
	// ErrInsufficientShares indicates a sell larger than the held position.
	ErrInsufficientShares = errors.New("broker: insufficient shares")
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	// OrderSideBuy represents a buy order.
	OrderSideBuy OrderSide = "BUY"
	// OrderSideSell represents a sell order.
	OrderSideSell OrderSide = "SELL"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	// OrderStatusFilled indicates the order has been completely filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusRejected indicates the order was rejected.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderRequest represents a request to place a new order.
type OrderRequest struct {
	// Symbol is the trading pair (e.g., "BTCUSDT").
	Symbol string `json:"symbol"`
	// Side indicates buy or sell.
	Side OrderSide `json:"side"`
	// Quantity is the number of units to trade, fractional for crypto.
	Quantity float64 `json:"quantity"`
	// Price is the fill price for the order.
	Price float64 `json:"price"`
	// ClientOrderID is an optional client-specified identifier.
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Validate checks if the order request has valid required fields.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Order represents a placed order.
type Order struct {
	// OrderID is the broker-assigned unique identifier.
	OrderID string `json:"order_id"`
	// ClientOrderID is the client-specified identifier if provided.
	ClientOrderID string `json:"client_order_id,omitempty"`
	// Symbol is the trading pair.
	Symbol string `json:"symbol"`
	// Side indicates buy or sell.
	Side OrderSide `json:"side"`
	// Quantity is the order quantity.
	Quantity float64 `json:"quantity"`
	// FillPrice is the execution price.
	FillPrice float64 `json:"fill_price"`
	// Commission is the commission charged on the fill.
	Commission float64 `json:"commission"`
	// Status is the final order status.
	Status OrderStatus `json:"status"`
	// CreatedAt is when the order was created.
	CreatedAt time.Time `json:"created_at"`
	// RejectionReason contains the reason if the order was rejected.
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Position represents a holding in a symbol.
type Position struct {
	// Symbol is the trading pair.
	Symbol string `json:"symbol"`
	// Quantity is the number of units held.
	Quantity float64 `json:"quantity"`
	// AverageCost is the average cost basis per unit.
	AverageCost float64 `json:"average_cost"`
	// RealizedPnL is the profit/loss from closed trades.
	RealizedPnL float64 `json:"realized_pnl"`
	// UpdatedAt is when the position was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance represents account balance information.
type Balance struct {
	// Currency is the quote currency code (e.g., "USDT").
	Currency string `json:"currency"`
	// Cash is the available cash balance.
	Cash float64 `json:"cash"`
	// UpdatedAt is when the balance was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Broker defines the interface for order execution backends.
type Broker interface {
	// Name returns the broker identifier (e.g., "paper").
	Name() string

	// PlaceOrder places an order and returns its final state.
	PlaceOrder(ctx context.Context, request OrderRequest) (*Order, error)
	// GetOrder retrieves a previously placed order by ID.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// GetPosition returns the current position for a symbol, nil if flat.
	GetPosition(ctx context.Context, symbol string) (*Position, error)
	// GetBalance returns the account balance.
	GetBalance(ctx context.Context) (*Balance, error)
}
