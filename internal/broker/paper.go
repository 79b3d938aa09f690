package broker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaperConfig holds paper trading account settings.
type PaperConfig struct {
	Currency       string
	InitialCash    float64
	CommissionRate float64
	MinCommission  float64
}

// Paper is an in-memory simulated broker. Orders fill immediately at the
// requested price; commissions follow the same rule as the backtest engine.
type Paper struct {
	mu        sync.Mutex
	cfg       PaperConfig
	cash      float64
	positions map[string]*Position
	orders    map[string]*Order
}

// NewPaper creates a paper broker with the given starting balance.
func NewPaper(cfg PaperConfig) *Paper {
	if cfg.Currency == "" {
		cfg.Currency = "USDT"
	}
	return &Paper{
		cfg:       cfg,
		cash:      cfg.InitialCash,
		positions: make(map[string]*Position),
		orders:    make(map[string]*Order),
	}
}

func (p *Paper) Name() string {
	return "paper"
}

func (p *Paper) commission(notional float64) float64 {
	return math.Max(notional*p.cfg.CommissionRate, p.cfg.MinCommission)
}

// PlaceOrder fills the request against the simulated account. Buys that
// would overdraw cash and sells larger than the held position are rejected.
func (p *Paper) PlaceOrder(ctx context.Context, request OrderRequest) (*Order, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	order := &Order{
		OrderID:       uuid.NewString(),
		ClientOrderID: request.ClientOrderID,
		Symbol:        request.Symbol,
		Side:          request.Side,
		Quantity:      request.Quantity,
		FillPrice:     request.Price,
		CreatedAt:     now,
	}

	notional := request.Quantity * request.Price
	comm := p.commission(notional)

	switch request.Side {
	case OrderSideBuy:
		if notional+comm > p.cash {
			order.Status = OrderStatusRejected
			order.RejectionReason = ErrInsufficientFunds.Error()
			p.orders[order.OrderID] = order
			return order, ErrInsufficientFunds
		}
		p.cash -= notional + comm
		pos, ok := p.positions[request.Symbol]
		if !ok {
			pos = &Position{Symbol: request.Symbol}
			p.positions[request.Symbol] = pos
		}
		totalCost := pos.AverageCost*pos.Quantity + notional
		pos.Quantity += request.Quantity
		pos.AverageCost = totalCost / pos.Quantity
		pos.UpdatedAt = now

	case OrderSideSell:
		pos, ok := p.positions[request.Symbol]
		if !ok || pos.Quantity < request.Quantity {
			order.Status = OrderStatusRejected
			order.RejectionReason = ErrInsufficientShares.Error()
			p.orders[order.OrderID] = order
			return order, ErrInsufficientShares
		}
		p.cash += notional - comm
		pos.RealizedPnL += (request.Price - pos.AverageCost) * request.Quantity
		pos.Quantity -= request.Quantity
		pos.UpdatedAt = now
		if pos.Quantity == 0 {
			pos.AverageCost = 0
		}

	default:
		return nil, ErrInvalidQuantity
	}

	order.Commission = comm
	order.Status = OrderStatusFilled
	p.orders[order.OrderID] = order
	return order, nil
}

func (p *Paper) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

// GetPosition returns the position for a symbol, or nil when flat.
func (p *Paper) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[symbol]
	if !ok || pos.Quantity == 0 {
		return nil, nil
	}
	copied := *pos
	return &copied, nil
}

func (p *Paper) GetBalance(ctx context.Context) (*Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return &Balance{
		Currency:  p.cfg.Currency,
		Cash:      p.cash,
		UpdatedAt: time.Now().UTC(),
	}, nil
}
