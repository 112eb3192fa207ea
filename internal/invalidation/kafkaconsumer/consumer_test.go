package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/heatbox-map/internal/catalog"
	"github.com/mohammed-shakir/heatbox-map/internal/invalidation"
)

type fakeReloader struct {
	mu        sync.Mutex
	failFirst bool
	reloaded  []string
}

func (f *fakeReloader) Reload(_ context.Context, layer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if layer == "unknown" {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownCategory, layer)
	}
	if f.failFirst {
		f.failFirst = false
		return errors.New("boom")
	}
	f.reloaded = append(f.reloaded, layer)
	return nil
}

func (f *fakeReloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reloaded)
}

type fakeMapper struct{}

func (fakeMapper) CellsForGeometry(_ orb.Geometry, _ int) ([]string, error) {
	return []string{"871faa2b4ffffff", "871faa2b5ffffff"}, nil
}

type fakeHot struct {
	reset [][]string
	mu    sync.Mutex
}

func (f *fakeHot) Reset(cells ...string) {
	f.mu.Lock()
	f.reset = append(f.reset, cells)
	f.mu.Unlock()
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return map[string][]int32{"layer-updates": {0}} }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "layer-updates" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func eventBytes(layer string, seq *uint64, withGeom bool) []byte {
	ev := invalidation.Event{Version: 1, Op: invalidation.OpUpdate, Layer: layer, TS: time.Now().UTC(), Seq: seq}
	if withGeom {
		ev.Geometry = json.RawMessage(`{"type":"Polygon","coordinates":[[[8.5,50.1],[8.6,50.1],[8.6,50.2],[8.5,50.1]]]}`)
	}
	b, _ := json.Marshal(ev)
	return b
}

func u64(v uint64) *uint64 { return &v }

func newConsumerForTest(r Reloader, hm *fakeHot) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "layer-updates", GroupID: "g"}
	return New(cfg, r, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Mapper:  fakeMapper{},
		Hotness: hm,
		H3Res:   7,
	})
}

func TestSinglePartition_OrderAndCommitAfterWork(t *testing.T) {
	fr := &fakeReloader{}
	hm := &fakeHot{}
	c := newConsumerForTest(fr, hm)

	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: "layer-updates", Offset: 10, Value: eventBytes("kommunen", nil, true)}
	ch <- &sarama.ConsumerMessage{Topic: "layer-updates", Offset: 11, Value: eventBytes("waermenetze", nil, false)}
	close(ch)

	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked offsets=%v want [10 11]", s.marked)
	}
	if fr.count() != 2 || fr.reloaded[0] != "kommunen" {
		t.Fatalf("reloaded=%v", fr.reloaded)
	}
	if len(hm.reset) != 1 || len(hm.reset[0]) != 2 {
		t.Fatalf("hotness resets=%v want one reset of 2 cells", hm.reset)
	}
}

func TestRetry_CommitOnceAfterSuccess(t *testing.T) {
	fr := &fakeReloader{failFirst: true}
	c := newConsumerForTest(fr, &fakeHot{})
	ctx := context.Background()

	msg := &sarama.ConsumerMessage{Topic: "layer-updates", Offset: 5, Value: eventBytes("kommunen", u64(3), false)}
	if err := c.ProcessOne(ctx, msg); err == nil {
		t.Fatalf("expected error on first attempt")
	}

	s := &sess{ctx: ctx}
	g := &groupHandler{process: c.ProcessOne}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg
	close(ch)
	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("offset was not marked after success; marked=%v", s.marked)
	}
	if fr.count() != 1 {
		t.Fatalf("failed attempt must not be deduped; reloads=%d", fr.count())
	}
}

func TestFailure_StopsClaimWithoutMarking(t *testing.T) {
	c := newConsumerForTest(&fakeReloader{failFirst: true}, &fakeHot{})
	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- &sarama.ConsumerMessage{Offset: 1, Value: eventBytes("kommunen", nil, false)}
	close(ch)
	if err := (&groupHandler{process: c.ProcessOne}).ConsumeClaim(s, &claim{msgs: ch}); err == nil {
		t.Fatal("expected error")
	}
	if len(s.marked) != 0 {
		t.Fatalf("marked=%v want none", s.marked)
	}
}

func TestDedupe_SkipsOlderOrEqualSeq(t *testing.T) {
	fr := &fakeReloader{}
	c := newConsumerForTest(fr, &fakeHot{})
	ctx := context.Background()

	for _, seq := range []uint64{5, 5, 4, 6} {
		msg := &sarama.ConsumerMessage{Value: eventBytes("eignungsgebiete", u64(seq), false)}
		if err := c.ProcessOne(ctx, msg); err != nil {
			t.Fatalf("seq %d: %v", seq, err)
		}
	}
	if fr.count() != 2 {
		t.Fatalf("reloads=%d want 2 (seq 5 and 6)", fr.count())
	}
	// other layers keep their own sequence
	if err := c.ProcessOne(ctx, &sarama.ConsumerMessage{Value: eventBytes("kommunen", u64(1), false)}); err != nil {
		t.Fatal(err)
	}
	if fr.count() != 3 {
		t.Fatalf("reloads=%d want 3", fr.count())
	}
}

func TestPoisonMessages_AreMarked(t *testing.T) {
	fr := &fakeReloader{}
	c := newConsumerForTest(fr, &fakeHot{})
	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 3)
	ch <- &sarama.ConsumerMessage{Offset: 1, Value: []byte("{not json")}
	ch <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`{"version":9,"op":"update","layer":"kommunen","ts":"2025-01-01T00:00:00Z"}`)}
	ch <- &sarama.ConsumerMessage{Offset: 3, Value: eventBytes("unknown", nil, false)}
	close(ch)

	if err := (&groupHandler{process: c.ProcessOne}).ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 3 || fr.count() != 0 {
		t.Fatalf("marked=%v reloads=%d", s.marked, fr.count())
	}
}

func TestMultiPartition_Parallel_NoCrossOrdering(t *testing.T) {
	c := newConsumerForTest(&fakeReloader{}, &fakeHot{})
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	p0 := make(chan *sarama.ConsumerMessage, 2)
	p1 := make(chan *sarama.ConsumerMessage, 2)
	p0 <- &sarama.ConsumerMessage{Partition: 0, Offset: 1, Value: eventBytes("kommunen", nil, true)}
	p0 <- &sarama.ConsumerMessage{Partition: 0, Offset: 2, Value: eventBytes("kommunen", nil, true)}
	p1 <- &sarama.ConsumerMessage{Partition: 1, Offset: 1, Value: eventBytes("waermenetze", nil, false)}
	p1 <- &sarama.ConsumerMessage{Partition: 1, Offset: 2, Value: eventBytes("waermenetze", nil, false)}
	close(p0)
	close(p1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = g.ConsumeClaim(s, &claim{part: 0, msgs: p0}) }()
	go func() { defer wg.Done(); _ = g.ConsumeClaim(s, &claim{part: 1, msgs: p1}) }()
	wg.Wait()

	if len(s.marked) != 4 {
		t.Fatalf("expected 4 marks total; got %v", s.marked)
	}
}

func TestSetup_TracksAssignment(t *testing.T) {
	c := newConsumerForTest(&fakeReloader{}, &fakeHot{})
	h := &groupHandler{process: c.ProcessOne, onSetup: func(claims map[string][]int32) {
		c.assigned.Store(len(claims[c.cfg.Topic]) > 0)
	}}
	if err := h.Setup(&sess{ctx: t.Context()}); err != nil {
		t.Fatal(err)
	}
	if !c.Assigned() {
		t.Fatal("expected assignment after setup")
	}
}

func TestStart_RequiresConfig(t *testing.T) {
	c := New(Config{}, &fakeReloader{}, Options{})
	if err := c.Start(t.Context()); err == nil {
		t.Fatal("expected error without brokers/topic")
	}
}
