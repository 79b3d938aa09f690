package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaper() *Paper {
	return NewPaper(PaperConfig{
		InitialCash:    10000,
		CommissionRate: 0.001,
		MinCommission:  1.0,
	})
}

func TestPaper_BuyAndSell(t *testing.T) {
	p := newTestPaper()
	ctx := context.Background()

	buy, err := p.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: OrderSideBuy, Quantity: 0.1, Price: 50000,
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, buy.Status)
	assert.NotEmpty(t, buy.OrderID)
	assert.Equal(t, 5.0, buy.Commission) // 5000 * 0.001

	bal, err := p.GetBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10000-5000-5, bal.Cash, 1e-9)

	pos, err := p.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 0.1, pos.Quantity)
	assert.Equal(t, 50000.0, pos.AverageCost)

	sell, err := p.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: OrderSideSell, Quantity: 0.1, Price: 55000,
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, sell.Status)

	pos, err = p.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, pos, "position should be flat after full sell")

	bal, err = p.GetBalance(ctx)
	require.NoError(t, err)
	// 4995 + 5500 - 5.5 commission
	assert.InDelta(t, 4995+5500-5.5, bal.Cash, 1e-9)
}

func TestPaper_MinCommission(t *testing.T) {
	p := newTestPaper()

	order, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: OrderSideBuy, Quantity: 0.001, Price: 100,
	})
	require.NoError(t, err)
	// 0.1 * 0.001 rate would be far below the floor
	assert.Equal(t, 1.0, order.Commission)
}

func TestPaper_RejectsOverdraw(t *testing.T) {
	p := newTestPaper()

	order, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: OrderSideBuy, Quantity: 1, Price: 50000,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	require.NotNil(t, order)
	assert.Equal(t, OrderStatusRejected, order.Status)

	bal, err := p.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10000.0, bal.Cash, "rejected order must not touch cash")
}

func TestPaper_RejectsShortSell(t *testing.T) {
	p := newTestPaper()

	_, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: OrderSideSell, Quantity: 0.1, Price: 50000,
	})
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestPaper_AveragesCostAcrossBuys(t *testing.T) {
	p := newTestPaper()
	ctx := context.Background()

	_, err := p.PlaceOrder(ctx, OrderRequest{
		Symbol: "ETHUSDT", Side: OrderSideBuy, Quantity: 1, Price: 2000,
	})
	require.NoError(t, err)
	_, err = p.PlaceOrder(ctx, OrderRequest{
		Symbol: "ETHUSDT", Side: OrderSideBuy, Quantity: 1, Price: 3000,
	})
	require.NoError(t, err)

	pos, err := p.GetPosition(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 2.0, pos.Quantity)
	assert.Equal(t, 2500.0, pos.AverageCost)
}

func TestPaper_RealizedPnL(t *testing.T) {
	p := newTestPaper()
	ctx := context.Background()

	_, err := p.PlaceOrder(ctx, OrderRequest{
		Symbol: "ETHUSDT", Side: OrderSideBuy, Quantity: 2, Price: 2000,
	})
	require.NoError(t, err)
	_, err = p.PlaceOrder(ctx, OrderRequest{
		Symbol: "ETHUSDT", Side: OrderSideSell, Quantity: 1, Price: 2500,
	})
	require.NoError(t, err)

	pos, err := p.GetPosition(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 1.0, pos.Quantity)
	assert.Equal(t, 500.0, pos.RealizedPnL)
}

func TestPaper_GetOrder(t *testing.T) {
	p := newTestPaper()
	ctx := context.Background()

	placed, err := p.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: OrderSideBuy, Quantity: 0.01, Price: 50000,
		ClientOrderID: "client-1",
	})
	require.NoError(t, err)

	got, err := p.GetOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ClientOrderID)
	assert.Equal(t, placed.FillPrice, got.FillPrice)

	_, err = p.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaper_InvalidRequest(t *testing.T) {
	p := newTestPaper()
	_, err := p.PlaceOrder(context.Background(), OrderRequest{})
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}
