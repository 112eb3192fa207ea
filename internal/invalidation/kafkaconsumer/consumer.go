// Package kafkaconsumer applies layer invalidation events read from Kafka.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/heatbox-map/internal/catalog"
	obs "github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/invalidation"
	mylog "github.com/mohammed-shakir/heatbox-map/internal/logger"
)

type Reloader interface {
	Reload(ctx context.Context, layer string) error
}

type CellMapper interface {
	CellsForGeometry(g orb.Geometry, res int) ([]string, error)
}

type HotnessResetter interface {
	Reset(cells ...string)
}

type Options struct {
	Logger *slog.Logger
	// ZLog receives the structured per-event audit lines.
	ZLog    *zerolog.Logger
	Mapper  CellMapper
	Hotness HotnessResetter
	H3Res   int
}

type Consumer struct {
	cfg      Config
	logger   *slog.Logger
	zlog     *zerolog.Logger
	reloader Reloader
	mapper   CellMapper
	hot      HotnessResetter
	res      int
	ver      *versionDedupe
	assigned atomic.Bool
}

func New(cfg Config, reloader Reloader, opts Options) *Consumer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Consumer{
		cfg:      cfg,
		logger:   opts.Logger,
		zlog:     opts.ZLog,
		reloader: reloader,
		mapper:   opts.Mapper,
		hot:      opts.Hotness,
		res:      opts.H3Res,
		ver:      newVersionDedupe(cfg.DedupeSize),
	}
}

// Start consumes invalidation events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.reloader == nil {
		return errors.New("kafkaconsumer: missing reloader")
	}
	if len(c.cfg.Brokers) == 0 || c.cfg.Topic == "" {
		return errors.New("kafkaconsumer: brokers and topic are required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{
		process: c.ProcessOne,
		onSetup: func(claims map[string][]int32) { c.assigned.Store(len(claims[c.cfg.Topic]) > 0) },
	}

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				obs.IncKafkaConsumerError("consume")
				c.logger.Error("consumer error", "err", err)
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

// Assigned reports whether this member currently owns partitions of the topic.
func (c *Consumer) Assigned() bool { return c.assigned.Load() }

// ProcessOne handles one message. A nil return means the offset may be
// marked; malformed, stale and unknown-layer events are dropped that way.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = mylog.WithComponent(ctx, "kafka_consumer")

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.dropped(ctx, msg, "decode", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		c.dropped(ctx, msg, "validate", err)
		return nil
	}
	ctx = mylog.WithCategory(ctx, ev.Layer)

	if ev.Seq != nil && c.ver.stale(ev.Layer, *ev.Seq) {
		c.logger.DebugContext(ctx, "skipping stale invalidation", "seq", *ev.Seq)
		obs.ObserveInvalidation(ev.Op, ev.Layer, nil)
		return nil
	}

	if err := c.reloader.Reload(ctx, ev.Layer); err != nil {
		if errors.Is(err, catalog.ErrUnknownCategory) {
			c.dropped(ctx, msg, "unknown_layer", err)
			return nil
		}
		obs.IncKafkaConsumerError("reload")
		obs.ObserveInvalidation(ev.Op, ev.Layer, err)
		return fmt.Errorf("reload %s: %w", ev.Layer, err)
	}
	if ev.Seq != nil {
		c.ver.record(ev.Layer, *ev.Seq)
	}

	cells := c.resetHotness(ctx, ev)
	obs.ObserveInvalidation(ev.Op, ev.Layer, nil)

	mylog.FromContext(ctx, c.zlog).Info().
		Str("event", "invalidation").
		Str("op", ev.Op).
		Int("cells", cells).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("layer reloaded")
	return nil
}

func (c *Consumer) resetHotness(ctx context.Context, ev invalidation.Event) int {
	if c.hot == nil || c.mapper == nil || !ev.HasGeometry() {
		return 0
	}
	g, err := ev.Geom()
	if err != nil {
		return 0
	}
	cells, err := c.mapper.CellsForGeometry(g, c.res)
	if err != nil {
		c.logger.WarnContext(ctx, "map invalidation geometry failed", "err", err)
		return 0
	}
	c.hot.Reset(cells...)
	return len(cells)
}

func (c *Consumer) dropped(ctx context.Context, msg *sarama.ConsumerMessage, kind string, err error) {
	obs.IncKafkaConsumerError(kind)
	c.logger.WarnContext(ctx, "dropping invalidation event", "kind", kind, "err", err)
	mylog.FromContext(ctx, c.zlog).Error().
		Str("kind", kind).
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("kafka error")
}
