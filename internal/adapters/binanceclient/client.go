package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"atrDipBot/internal/domain"
	"atrDipBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	defaultPricePrecision = 2
)

// Client implements the ports.ExchangeClient interface for Binance spot
// using the go-binance library.
type Client struct {
	spotClient     *binance.Client
	logger         ports.Logger
	pricePrecision int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey         string
	SecretKey      string
	UseTestnet     bool
	Logger         ports.Logger
	PricePrecision int // Decimal digits for limit prices; defaults to 2
}

// New creates a new Binance spot client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global binance.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	precision := cfg.PricePrecision
	if precision <= 0 {
		precision = defaultPricePrecision
	}

	return &Client{
		spotClient:     client,
		logger:         cfg.Logger,
		pricePrecision: precision,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1112, -1121, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -1013: // Filter failure (LOT_SIZE, PRICE_FILTER, MIN_NOTIONAL)
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected (includes insufficient balance on spot)
			if strings.Contains(apiErr.Message, "insufficient balance") {
				mappedErr = ports.ErrInsufficientFunds
			} else {
				mappedErr = ports.ErrOrderPlacementFailed
			}
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014: // API-key format invalid
			mappedErr = ports.ErrInvalidAPIKeys
		case -2015: // Invalid API-key, IP, or permissions for action
			mappedErr = ports.ErrInvalidAPIKeys
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetKlines retrieves historical klines/candlestick data for the given symbol.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	binanceKlines, err := c.spotClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}

	return domainKlines, nil
}

// GetQuoteBalance retrieves the free balance of the quote asset.
func (c *Client) GetQuoteBalance(ctx context.Context, asset string) (float64, error) {
	op := "GetQuoteBalance"
	account, err := c.spotClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, bal := range account.Balances {
		if bal.Asset == asset {
			// Free balance only; locked funds back resting orders.
			free, err := strconv.ParseFloat(bal.Free, 64)
			if err != nil {
				parseErr := fmt.Errorf("could not parse balance '%s' for asset %s: %w", bal.Free, asset, err)
				return 0, c.handleError(ctx, parseErr, op)
			}
			return free, nil
		}
	}

	err = fmt.Errorf("asset %s not found in account balance", asset)
	return 0, c.handleError(ctx, err, op)
}

// GetLotSize retrieves the LOT_SIZE filter for a symbol from exchange info.
func (c *Client) GetLotSize(ctx context.Context, symbol string) (*domain.LotSize, error) {
	op := "GetLotSize"
	info, err := c.spotClient.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		f := s.LotSizeFilter()
		if f == nil {
			err := fmt.Errorf("no LOT_SIZE filter for symbol %s", symbol)
			return nil, c.handleError(ctx, err, op)
		}
		step, err := strconv.ParseFloat(f.StepSize, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse step size '%s': %w", f.StepSize, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		minQty, err := strconv.ParseFloat(f.MinQuantity, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse min quantity '%s': %w", f.MinQuantity, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		return &domain.LotSize{
			StepSize:     step,
			MinQty:       minQty,
			QtyPrecision: stepPrecision(f.StepSize),
		}, nil
	}

	err = fmt.Errorf("symbol %s not found in exchange info", symbol)
	return nil, c.handleError(ctx, err, op)
}

// PlaceLimitOrder places a GTC limit order.
func (c *Client) PlaceLimitOrder(ctx context.Context, intent domain.OrderIntent) (*domain.OrderHandle, error) {
	op := "PlaceLimitOrder"
	clientOrderID := "adb-" + uuid.NewString()

	priceStr := strconv.FormatFloat(intent.Price, 'f', c.pricePrecision, 64)
	qtyStr := strconv.FormatFloat(intent.Quantity, 'f', -1, 64)

	order, err := c.spotClient.NewCreateOrderService().
		Symbol(intent.Symbol).
		Side(binance.SideType(intent.Side)).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(qtyStr).
		Price(priceStr).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	handle := &domain.OrderHandle{
		OrderID:       order.OrderID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          intent.Side,
		Price:         intent.Price,
		Quantity:      intent.Quantity,
		Status:        translateStatus(order.Status),
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":        intent.Symbol,
		"side":          intent.Side,
		"price":         priceStr,
		"quantity":      qtyStr,
		"orderID":       handle.OrderID,
		"clientOrderID": handle.ClientOrderID,
	})
	return handle, nil
}

// GetOrderStatus polls the current status of an order.
func (c *Client) GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*domain.OrderState, error) {
	op := "GetOrderStatus"
	order, err := c.spotClient.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	state := &domain.OrderState{Status: translateStatus(order.Status)}
	if state.Status == domain.OrderStatusFilled {
		state.FillPrice = fillPrice(order)
	}
	c.logger.Debug(ctx, op, map[string]interface{}{"symbol": symbol, "orderID": orderID, "status": state.Status})
	return state, nil
}

// CancelOrder cancels an open order on Binance.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	op := "CancelOrder"
	_, err := c.spotClient.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": orderID})
	return nil
}

// --- Translation Helpers ---

func translateStatus(status binance.OrderStatusType) domain.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled, binance.OrderStatusTypePendingCancel:
		return domain.OrderStatusPending
	case binance.OrderStatusTypeFilled:
		return domain.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired:
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusUnknown
	}
}

// fillPrice derives the actual execution price of a filled order.
// The order's Price field is the requested limit price; the cummulative
// quote over the executed quantity reflects the real fill, so prefer it.
func fillPrice(order *binance.Order) float64 {
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quote, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)
	if execQty > 0 && quote > 0 {
		return quote / execQty
	}
	price, _ := strconv.ParseFloat(order.Price, 64)
	return price
}

func translateKline(bk *binance.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol, // Not present in the raw kline payload
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}

// stepPrecision derives the decimal precision from a step size string,
// e.g. "0.00100000" -> 3, "1.00000000" -> 0.
func stepPrecision(step string) int {
	idx := strings.IndexByte(step, '.')
	if idx < 0 {
		return 0
	}
	frac := strings.TrimRight(step[idx+1:], "0")
	return len(frac)
}
