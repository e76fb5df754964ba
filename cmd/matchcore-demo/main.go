// Command matchcore-demo wires telemetry and configuration around the
// matching core and drives it with a synthetic order feed. It is an
// integration surface only — it never implements engine semantics itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/createMonster/aat-trading/internal/config"
	"github.com/createMonster/aat-trading/internal/model"
	"github.com/createMonster/aat-trading/internal/orderbook"
	"github.com/createMonster/aat-trading/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("matchcore-demo: %v", err)
	}

	logger := telemetry.NewLogger(telemetry.LoggerConfig{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	tracer, err := telemetry.NewTracer("matchcore-demo")
	if err != nil {
		logger.Fatal("failed to start tracer", zap.Error(err))
	}
	defer tracer.Shutdown(context.Background())

	if cfg.Metrics.Enabled {
		http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				logger.Error("metrics server exited", zap.Error(err))
			}
		}()
	}

	instrument := model.Instrument{Name: cfg.Feed.Instrument, Kind: "SPOT"}

	events := 0
	book := orderbook.New(instrument, model.NullExchange, func(ev model.Event) {
		events++
		logEvent(logger, ev)
		if ev.Type == model.EventTrade {
			metrics.TradesExecuted.WithLabelValues(instrument.Name).Inc()
		}
	})

	feed := newSyntheticFeed(cfg.Feed.Seed, cfg.Feed.PriceLevels, cfg.Feed.StopOrderPct, instrument)

	ctx := context.Background()
	for i := 0; i < cfg.Feed.OrderCount; i++ {
		order := feed.next()

		_, span := tracer.Start(ctx, "OrderBook.Add")
		span.SetAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("order.side", order.Side.String()),
			attribute.String("order.type", order.OrderType.String()),
		)
		start := time.Now()
		err := book.Add(order)
		metrics.AddLatency.WithLabelValues(instrument.Name).Observe(time.Since(start).Seconds())
		span.End()

		if err != nil {
			metrics.OrdersRejected.WithLabelValues(instrument.Name, "add_error").Inc()
			logger.Warn("order rejected", zap.String("order_id", order.ID), zap.Error(err))
			continue
		}
		metrics.OrdersReceived.WithLabelValues(instrument.Name, order.Side.String(), order.OrderType.String()).Inc()
		recordRestingVolume(metrics, book, instrument, cfg.Feed.PriceLevels)
	}

	bids, asks := book.Snapshot(cfg.Feed.PriceLevels)
	logger.Info("final book snapshot",
		zap.Int("events_emitted", events),
		zap.Int("bid_levels", len(bids)),
		zap.Int("ask_levels", len(asks)),
	)
}

// recordRestingVolume sums the visible depth's remaining volume per side and
// sets the gauge, giving an approximate (depth-bounded) view of book size
// rather than walking the full, potentially unbounded book on every order.
func recordRestingVolume(metrics *telemetry.Metrics, book *orderbook.OrderBook, instrument model.Instrument, depth int) {
	bids, asks := book.Snapshot(depth)

	bidVolume := decimal.Zero
	for _, level := range bids {
		bidVolume = bidVolume.Add(level.Volume)
	}
	metrics.RestingVolume.WithLabelValues(instrument.Name, model.Buy.String()).Set(bidVolume.InexactFloat64())

	askVolume := decimal.Zero
	for _, level := range asks {
		askVolume = askVolume.Add(level.Volume)
	}
	metrics.RestingVolume.WithLabelValues(instrument.Name, model.Sell.String()).Set(askVolume.InexactFloat64())
}

func logEvent(logger *zap.Logger, ev model.Event) {
	fields := []zap.Field{
		zap.String("type", ev.Type.String()),
		zap.String("order_id", ev.Order.ID),
	}
	if ev.Type == model.EventTrade {
		fields = append(fields, zap.String("volume", ev.Volume.String()), zap.String("price", ev.Price.String()))
	}
	logger.Info("book event", fields...)
}

// syntheticFeed emits a deterministic sequence of LIMIT/MARKET/STOP orders
// clustered around a synthetic mid price, so repeated demo runs produce the
// same sides, types, prices and volumes for a given seed. Order IDs come from
// uuid.New and differ between runs.
type syntheticFeed struct {
	rng          *rand.Rand
	instrument   model.Instrument
	priceLevels  int
	stopOrderPct int
	mid          decimal.Decimal
	seq          int
}

func newSyntheticFeed(seed int64, priceLevels, stopOrderPct int, instrument model.Instrument) *syntheticFeed {
	return &syntheticFeed{
		rng:          rand.New(rand.NewSource(seed)),
		instrument:   instrument,
		priceLevels:  priceLevels,
		stopOrderPct: stopOrderPct,
		mid:          decimal.NewFromInt(100),
	}
}

func (f *syntheticFeed) next() *model.Order {
	f.seq++
	side := model.Buy
	if f.rng.Intn(2) == 1 {
		side = model.Sell
	}

	offset := decimal.NewFromInt(int64(f.rng.Intn(f.priceLevels) - f.priceLevels/2))
	price := f.mid.Add(offset)
	if price.IsNegative() {
		price = decimal.Zero
	}
	volume := decimal.NewFromInt(int64(1 + f.rng.Intn(10)))

	orderType := model.Limit
	flag := model.None
	switch f.rng.Intn(10) {
	case 0:
		orderType = model.Market
	case 1:
		flag = model.ImmediateOrCancel
	case 2:
		flag = model.FillOrKill
	}

	if f.rng.Intn(100) < f.stopOrderPct {
		target := &model.Order{
			ID:         fmt.Sprintf("target-%s", uuid.New()),
			Side:       side,
			OrderType:  model.Limit,
			Price:      price,
			Volume:     volume,
			Instrument: f.instrument,
			Exchange:   model.NullExchange,
		}
		return &model.Order{
			ID:         fmt.Sprintf("stop-%s", uuid.New()),
			Side:       side,
			OrderType:  model.Stop,
			Price:      price,
			Volume:     volume,
			Instrument: f.instrument,
			Exchange:   model.NullExchange,
			StopTarget: target,
		}
	}

	return &model.Order{
		ID:         fmt.Sprintf("order-%s", uuid.New()),
		Side:       side,
		OrderType:  orderType,
		Flag:       flag,
		Price:      price,
		Volume:     volume,
		Instrument: f.instrument,
		Exchange:   model.NullExchange,
	}
}
