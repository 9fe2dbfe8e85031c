package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atrDipBot/config"
	"atrDipBot/internal/domain"
	"atrDipBot/internal/levels"
	"atrDipBot/internal/ports"
)

// tickOutcome tells the supervisory loop how the tick went so it can pick
// the sleep duration. A backoff outcome means an exchange call failed and
// the loop should slow down before retrying.
type tickOutcome int

const (
	tickOK tickOutcome = iota
	tickBackoff
)

// TradingService drives the single-position order lifecycle:
//
//	Idle -> BuyPending -> PositionOpen -> SellPending -> Idle
//
// The state is held in three fields: activeBuyOrder, activeSellOrder and
// position. Invariant: at most one of the two order handles is non-nil at
// any tick boundary, and position is non-nil only while no buy order is
// active. All state is memory-resident and lost on restart.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	levels    *levels.Calculator
	sizer     ports.Sizer
	notifier  ports.Notifier
	tradeRepo ports.TradeRepository // Optional; nil disables recording

	// Session state. The polling loop is the only flow touching these,
	// so no locking is needed.
	activeBuyOrder  *domain.OrderHandle
	activeSellOrder *domain.OrderHandle
	position        *domain.Position

	sellRetryAttempts  int
	sellRetryExhausted bool
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	calc *levels.Calculator,
	sizer ports.Sizer,
	notifier ports.Notifier,
	tradeRepo ports.TradeRepository,
) (*TradingService, error) {

	if cfg == nil || logger == nil || exchange == nil || calc == nil || sizer == nil || notifier == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.TargetProfitPercent <= 0 {
		return nil, fmt.Errorf("configuration TargetProfitPercent must be positive")
	}
	if cfg.CommissionPercent < 0 {
		return nil, fmt.Errorf("configuration CommissionPercent cannot be negative")
	}
	if cfg.PollInterval <= 0 || cfg.BackoffInterval <= 0 {
		return nil, fmt.Errorf("configuration poll and backoff intervals must be positive")
	}
	if cfg.SellRetryMaxAttempts <= 0 {
		return nil, fmt.Errorf("configuration SellRetryMaxAttempts must be positive")
	}

	return &TradingService{
		cfg:       cfg,
		logger:    logger,
		exchange:  exchange,
		levels:    calc,
		sizer:     sizer,
		notifier:  notifier,
		tradeRepo: tradeRepo,
	}, nil
}

// Start runs the polling loop until the context is cancelled or a
// termination signal arrives. It only returns an error when startup
// itself fails; once the loop is running the process is designed to
// never exit on its own.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{
		"symbol":       s.cfg.Symbol,
		"sizingMode":   s.cfg.SizingMode,
		"pollInterval": s.cfg.PollInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.exchange.Ping(ctx); err != nil {
		s.logger.Error(ctx, err, "Exchange connectivity check failed")
		return fmt.Errorf("exchange ping failed: %w", err)
	}

	s.notifier.Notify(ctx, fmt.Sprintf("🤖 Bot started for %s (interval %s)", s.cfg.Symbol, s.cfg.KlineInterval))

	for {
		outcome := s.tick(ctx)

		sleep := s.cfg.PollInterval
		if outcome == tickBackoff {
			sleep = s.cfg.BackoffInterval
			s.logger.Warn(ctx, "Tick failed, backing off", map[string]interface{}{"sleep": sleep.String()})
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.shutdown()
			return nil
		case <-timer.C:
		}
	}
}

func (s *TradingService) shutdown() {
	// Fresh context: the loop context is already cancelled.
	ctx := context.Background()
	if s.tradeRepo != nil {
		profit, err := s.tradeRepo.RealizedProfit(ctx, s.cfg.Symbol)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to compute realized profit on shutdown")
		} else {
			s.logger.Info(ctx, "Realized profit to date", map[string]interface{}{"symbol": s.cfg.Symbol, "profit": profit})
		}
	}
	s.notifier.Notify(ctx, fmt.Sprintf("🛑 Bot stopped for %s", s.cfg.Symbol))
	s.logger.Info(ctx, "Trading Service stopped.")
}

// tick evaluates the state machine once. Branch order is fixed
// (buy placement, buy poll, sell retry, sell poll) so the single-active-
// order invariant holds within the tick. A sell placed right after a buy
// fill is polled in the same tick, matching the fall-through evaluation
// of the loop.
func (s *TradingService) tick(ctx context.Context) tickOutcome {
	outcome := tickOK
	uncoveredAtStart := s.position != nil && s.activeSellOrder == nil

	// Idle -> BuyPending
	if s.position == nil && s.activeBuyOrder == nil && s.activeSellOrder == nil {
		if o := s.tryPlaceBuy(ctx); o > outcome {
			outcome = o
		}
	}

	// BuyPending -> PositionOpen (-> SellPending)
	if s.activeBuyOrder != nil {
		if o := s.pollBuyOrder(ctx); o > outcome {
			outcome = o
		}
	}

	// PositionOpen without a resting sell: bounded placement retry.
	// Only fires for a position carried over from a previous tick; the
	// buy-fill path above already made this tick's attempt.
	if uncoveredAtStart && s.position != nil && s.activeSellOrder == nil {
		if o := s.retrySellPlacement(ctx); o > outcome {
			outcome = o
		}
	}

	// SellPending -> Idle
	if s.activeSellOrder != nil {
		if o := s.pollSellOrder(ctx); o > outcome {
			outcome = o
		}
	}

	return outcome
}

// tryPlaceBuy fetches candles, derives the trigger price, sizes the order
// and submits the limit buy. Any failure leaves the machine Idle; the next
// tick retries naturally.
func (s *TradingService) tryPlaceBuy(ctx context.Context) tickOutcome {
	op := "tryPlaceBuy"

	klines, err := s.exchange.GetKlines(ctx, s.cfg.Symbol, s.cfg.KlineInterval, s.cfg.KlineLimit)
	if err != nil {
		s.logger.Error(ctx, err, op+": failed to fetch klines")
		return tickBackoff
	}

	buyPrice, ok := s.levels.BuyTrigger(klines)
	if !ok {
		s.logger.Debug(ctx, op+": no buy trigger", map[string]interface{}{"klines": len(klines)})
		return tickOK
	}

	quantity, err := s.sizer.Quantity(ctx, buyPrice)
	if err != nil {
		if errors.Is(err, ports.ErrBelowMinNotional) || errors.Is(err, ports.ErrBelowMinQty) {
			// Business outcome: skip this cycle, no order placed.
			s.logger.Warn(ctx, op+": sizing rejected, skipping cycle", map[string]interface{}{"reason": err.Error()})
			return tickOK
		}
		s.logger.Error(ctx, err, op+": failed to size order")
		return tickBackoff
	}

	intent := domain.OrderIntent{
		Symbol:   s.cfg.Symbol,
		Side:     domain.Buy,
		Price:    buyPrice,
		Quantity: quantity,
	}
	handle, err := s.exchange.PlaceLimitOrder(ctx, intent)
	if err != nil {
		s.logger.Error(ctx, err, op+": failed to place buy order", map[string]interface{}{"price": buyPrice, "quantity": quantity})
		s.notifier.Notify(ctx, fmt.Sprintf("Error placing BUY order: %v", err))
		return tickBackoff
	}

	s.activeBuyOrder = handle
	s.logger.Info(ctx, op+": buy order placed", map[string]interface{}{
		"orderID":  handle.OrderID,
		"price":    buyPrice,
		"quantity": quantity,
	})
	s.notifier.Notify(ctx, fmt.Sprintf("Placed BUY order for %v %s at %.2f", quantity, s.cfg.Symbol, buyPrice))
	return tickOK
}

// pollBuyOrder checks the pending buy. On fill it opens the position with
// the actual fill price and immediately attempts the paired limit sell.
func (s *TradingService) pollBuyOrder(ctx context.Context) tickOutcome {
	op := "pollBuyOrder"
	order := s.activeBuyOrder

	state, err := s.exchange.GetOrderStatus(ctx, order.Symbol, order.OrderID)
	if err != nil {
		s.logger.Error(ctx, err, op+": failed to poll order status", map[string]interface{}{"orderID": order.OrderID})
		return tickBackoff
	}

	switch state.Status {
	case domain.OrderStatusFilled:
		entryPrice := state.FillPrice
		if entryPrice <= 0 {
			// Slippage-aware price unavailable; fall back to the limit price.
			s.logger.Warn(ctx, op+": fill price unavailable, using requested limit price", map[string]interface{}{"orderID": order.OrderID, "limitPrice": order.Price})
			entryPrice = order.Price
		}

		s.position = &domain.Position{
			Symbol:     order.Symbol,
			EntryPrice: entryPrice,
			Quantity:   order.Quantity,
			EntryTime:  time.Now().UTC(),
		}
		s.activeBuyOrder = nil
		s.sellRetryAttempts = 0
		s.sellRetryExhausted = false

		s.logger.Info(ctx, op+": buy order filled", map[string]interface{}{"orderID": order.OrderID, "entryPrice": entryPrice})
		s.notifier.Notify(ctx, fmt.Sprintf("✅ Buy order filled at %.2f", entryPrice))
		s.recordFill(ctx, domain.ActionBuy, entryPrice, order.Quantity, order.OrderID)

		s.placeSellOrder(ctx)
		return tickOK

	case domain.OrderStatusCanceled:
		// Cancelled outside the bot; drop the handle and return to Idle.
		s.logger.Warn(ctx, op+": buy order cancelled externally", map[string]interface{}{"orderID": order.OrderID})
		s.notifier.Notify(ctx, fmt.Sprintf("Buy order %d cancelled", order.OrderID))
		s.activeBuyOrder = nil
		return tickOK

	default:
		// Pending or Unknown: no progress this tick, poll again next tick.
		s.logger.Debug(ctx, op+": buy order still pending", map[string]interface{}{"orderID": order.OrderID, "status": state.Status})
		return tickOK
	}
}

// retrySellPlacement re-attempts the limit sell for an open position with
// no resting sell order, up to the configured attempt budget.
func (s *TradingService) retrySellPlacement(ctx context.Context) tickOutcome {
	if s.sellRetryExhausted {
		return tickOK
	}
	if ok := s.placeSellOrder(ctx); !ok {
		return tickBackoff
	}
	return tickOK
}

// placeSellOrder submits the profit-target limit sell for the open
// position. Returns false when placement failed and the position remains
// uncovered.
func (s *TradingService) placeSellOrder(ctx context.Context) bool {
	op := "placeSellOrder"
	pos := s.position

	sellPrice := domain.SellTarget(pos.EntryPrice, s.cfg.TargetProfitPercent, s.cfg.CommissionPercent)
	pos.SellPrice = sellPrice

	intent := domain.OrderIntent{
		Symbol:   pos.Symbol,
		Side:     domain.Sell,
		Price:    sellPrice,
		Quantity: pos.Quantity,
	}
	handle, err := s.exchange.PlaceLimitOrder(ctx, intent)
	if err != nil {
		s.sellRetryAttempts++
		s.logger.Error(ctx, err, op+": failed to place sell order", map[string]interface{}{
			"sellPrice": sellPrice,
			"attempt":   s.sellRetryAttempts,
			"maxRetry":  s.cfg.SellRetryMaxAttempts,
		})
		s.notifier.Notify(ctx, fmt.Sprintf("Error placing SELL order (attempt %d/%d): %v", s.sellRetryAttempts, s.cfg.SellRetryMaxAttempts, err))
		if s.sellRetryAttempts >= s.cfg.SellRetryMaxAttempts {
			s.sellRetryExhausted = true
			s.logger.Error(ctx, err, op+": sell placement retries exhausted, position left uncovered", map[string]interface{}{"entryPrice": pos.EntryPrice, "quantity": pos.Quantity})
			s.notifier.Notify(ctx, fmt.Sprintf("🚨 Sell placement failed %d times for %s; manual intervention required", s.sellRetryAttempts, pos.Symbol))
		}
		return false
	}

	s.activeSellOrder = handle
	s.sellRetryAttempts = 0
	s.logger.Info(ctx, op+": sell order placed", map[string]interface{}{
		"orderID":   handle.OrderID,
		"sellPrice": sellPrice,
		"quantity":  pos.Quantity,
	})
	s.notifier.Notify(ctx, fmt.Sprintf("Placed SELL order for %v %s at %.2f", pos.Quantity, pos.Symbol, sellPrice))
	return true
}

// pollSellOrder checks the pending sell; a fill closes the position and
// returns the machine to Idle.
func (s *TradingService) pollSellOrder(ctx context.Context) tickOutcome {
	op := "pollSellOrder"
	order := s.activeSellOrder

	state, err := s.exchange.GetOrderStatus(ctx, order.Symbol, order.OrderID)
	if err != nil {
		s.logger.Error(ctx, err, op+": failed to poll order status", map[string]interface{}{"orderID": order.OrderID})
		return tickBackoff
	}

	switch state.Status {
	case domain.OrderStatusFilled:
		exitPrice := state.FillPrice
		if exitPrice <= 0 {
			exitPrice = order.Price
		}
		s.logger.Info(ctx, op+": sell order filled, profit taken", map[string]interface{}{"orderID": order.OrderID, "exitPrice": exitPrice})
		s.notifier.Notify(ctx, fmt.Sprintf("💰 Profit taken! Sold at %.2f", exitPrice))
		s.recordFill(ctx, domain.ActionSell, exitPrice, order.Quantity, order.OrderID)

		s.activeSellOrder = nil
		s.position = nil
		return tickOK

	case domain.OrderStatusCanceled:
		// Position is still open; re-place the sell on following ticks.
		s.logger.Warn(ctx, op+": sell order cancelled externally, will re-place", map[string]interface{}{"orderID": order.OrderID})
		s.activeSellOrder = nil
		s.sellRetryAttempts = 0
		s.sellRetryExhausted = false
		return tickOK

	default:
		s.logger.Debug(ctx, op+": sell order still pending", map[string]interface{}{"orderID": order.OrderID, "status": state.Status})
		return tickOK
	}
}

// recordFill appends the fill to the audit log. Recording is best-effort:
// failures are logged and never affect the state machine.
func (s *TradingService) recordFill(ctx context.Context, action domain.TradeAction, price, quantity float64, orderID int64) {
	if s.tradeRepo == nil {
		return
	}
	trade := &domain.Trade{
		Symbol:     s.cfg.Symbol,
		Action:     action,
		Price:      price,
		Quantity:   quantity,
		OrderID:    orderID,
		ExecutedAt: time.Now().UTC(),
	}
	if _, err := s.tradeRepo.Record(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to record trade", map[string]interface{}{"action": action, "orderID": orderID})
	}
}
