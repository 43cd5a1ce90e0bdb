// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/repowrite/lib/clock"
	"github.com/bureau-foundation/repowrite/lib/config"
	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
	"github.com/bureau-foundation/repowrite/lib/testutil"
	"github.com/bureau-foundation/repowrite/transport"
)

func TestPublishThenAckFlushes(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)

	var uris []string
	for i := range 10 {
		uris = append(uris, fmt.Sprintf("/ns/seg/%d", i))
	}
	h.publish(uris...)

	if h.flow.FlushComplete() {
		t.Fatal("FlushComplete with 10 unacknowledged segments")
	}
	if got := h.flow.Pending(); got != 10 {
		t.Fatalf("Pending = %d, want 10", got)
	}
	if got := len(h.network.Puts()); got != 10 {
		t.Errorf("network saw %d puts, want 10", got)
	}

	for _, uri := range uris {
		if !h.flow.Ack(name.MustParse(uri)) {
			t.Errorf("Ack(%s) removed nothing", uri)
		}
	}
	if !h.flow.FlushComplete() || h.flow.Pending() != 0 {
		t.Errorf("after acking everything: FlushComplete=%v Pending=%d", h.flow.FlushComplete(), h.flow.Pending())
	}
}

func TestDataRepliesAcknowledge(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/a/0", "/ns/a/1", "/ns/a/2")

	if delivered := h.sendData(testRepository, testGlobal, "/ns/a/0", "/ns/a/2"); delivered != 1 {
		t.Fatalf("DATA reply reached %d registrations, want 1", delivered)
	}
	if got := nameStrings(h.flow.PendingNames()); !slices.Equal(got, []string{"/ns/a/1"}) {
		t.Errorf("PendingNames = %v, want [/ns/a/1]", got)
	}
}

func TestWrongRepositoryRepliesIgnored(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/a/0")

	h.sendData("repo-b", testGlobal, "/ns/a/0")
	h.sendData(testRepository, "/repo/elsewhere", "/ns/a/0")
	if h.flow.Pending() != 1 {
		t.Fatalf("acks from another repository removed an entry")
	}
	if got := promtestutil.ToFloat64(h.metrics.ignoredReplies); got != 2 {
		t.Errorf("ignored replies = %v, want 2", got)
	}

	h.sendData(testRepository, testGlobal, "/ns/a/0")
	if !h.flow.FlushComplete() {
		t.Error("ack from the bound repository was not applied")
	}
}

func TestMalformedRepliesSkipped(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/a/0")

	replyName := StartWriteName(h.session.Namespace, h.session.Nonce).Append([]byte("junk"))
	h.network.Respond(transport.Reply{Name: replyName, Kind: transport.KindData, Content: []byte{0xff, 0x00, 0x13}})
	unknownType := encodeInfo(t, h.codec, RepositoryInfo{Type: 9, LocalName: testRepository})
	h.network.Respond(transport.Reply{Name: replyName, Kind: transport.KindData, Content: unknownType})
	h.network.Respond(transport.Reply{Name: replyName, Kind: transport.KindNack})

	if got := promtestutil.ToFloat64(h.metrics.malformedReplies); got != 2 {
		t.Errorf("malformed replies = %v, want 2", got)
	}
	if warnings := h.logs.Find("malformed repository reply"); len(warnings) != 2 {
		t.Errorf("logged %d malformed-reply warnings, want 2", len(warnings))
	}

	// Processing continues after garbage.
	h.sendData(testRepository, testGlobal, "/ns/a/0")
	if !h.flow.FlushComplete() {
		t.Error("valid ack after malformed replies was not applied")
	}
}

func TestAckIsIdempotent(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/a/0", "/ns/a/1")

	if !h.flow.Ack(name.MustParse("/ns/a/0")) {
		t.Fatal("first Ack removed nothing")
	}
	for range 3 {
		if h.flow.Ack(name.MustParse("/ns/a/0")) {
			t.Fatal("repeated Ack removed an entry")
		}
	}
	if h.flow.Ack(name.MustParse("/ns/never")) {
		t.Fatal("Ack of an unpublished name removed an entry")
	}
	if h.flow.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", h.flow.Pending())
	}
	if got := promtestutil.ToFloat64(h.metrics.acks.WithLabelValues(ackStale)); got != 4 {
		t.Errorf("stale acks = %v, want 4", got)
	}
}

func TestDuplicatePublishReplacesEntry(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/a/0", "/ns/a/0", "/ns/a/0")
	if h.flow.Pending() != 1 {
		t.Errorf("Pending = %d after publishing one name three times, want 1", h.flow.Pending())
	}
}

func TestPublishBlocksAtHighWaterUntilLowWater(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.HighWater = 4
	cfg.LowWater = 2
	h := newHarness(t, cfg, false)
	ctx := context.Background()

	h.publish("/ns/seg/0", "/ns/seg/1", "/ns/seg/2", "/ns/seg/3")

	sent := h.network.Changed()
	overHigh := make(chan error, 1)
	go func() { overHigh <- h.flow.Publish(ctx, testSegment("/ns/seg/4")) }()
	testutil.RequireClosed(t, sent, 5*time.Second, "waiting for the over-high segment to be sent")

	// A second publisher arriving while the area is over the mark
	// waits before inserting.
	later := make(chan error, 1)
	go func() { later <- h.flow.Publish(ctx, testSegment("/ns/seg/5")) }()

	h.clock.WaitForTimers(2)
	if got := h.flow.Pending(); got != 5 {
		t.Fatalf("Pending = %d while blocked, want 5 (high water + 1)", got)
	}

	// An expired window is logged and the wait resumes.
	h.clock.Advance(cfg.ResponseTimeout)
	h.clock.WaitForTimers(2)
	if warnings := h.logs.Find("publish blocked waiting for acknowledgments"); len(warnings) != 2 {
		t.Errorf("logged %d stall warnings, want 2", len(warnings))
	}
	testutil.RequireNoReceive(t, overHigh, 20*time.Millisecond, "publish returned before low water")

	h.flow.Ack(name.MustParse("/ns/seg/0"))
	h.flow.Ack(name.MustParse("/ns/seg/1"))
	testutil.RequireNoReceive(t, overHigh, 20*time.Millisecond, "publish returned above low water")

	h.flow.Ack(name.MustParse("/ns/seg/2"))
	if err := testutil.RequireReceive(t, overHigh, 5*time.Second, "waiting for blocked publish"); err != nil {
		t.Fatalf("blocked Publish: %v", err)
	}
	if err := testutil.RequireReceive(t, later, 5*time.Second, "waiting for gated publish"); err != nil {
		t.Fatalf("gated Publish: %v", err)
	}
	if got := nameStrings(h.flow.PendingNames()); !slices.Equal(got, []string{"/ns/seg/3", "/ns/seg/4", "/ns/seg/5"}) {
		t.Errorf("PendingNames = %v", got)
	}
	if got := promtestutil.ToFloat64(h.metrics.blockedPublishes); got != 1 {
		t.Errorf("blocked publishes = %v, want 1", got)
	}
}

func TestBlockedPublishCancellationKeepsEntry(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.HighWater = 1
	cfg.LowWater = 0
	h := newHarness(t, cfg, false)

	h.publish("/ns/a/0")
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- h.flow.Publish(ctx, testSegment("/ns/a/1")) }()

	h.clock.WaitForTimers(1)
	cancel()
	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for cancelled publish")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish error = %v, want context.Canceled", err)
	}
	if h.flow.Pending() != 2 {
		t.Errorf("Pending = %d, want 2: a cancelled wait leaves the entry pending", h.flow.Pending())
	}
}

func TestConcurrentPublishersStayWithinOneOfHighWater(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.HighWater = 4
	cfg.LowWater = 2
	h := newHarness(t, cfg, false)

	const publishers, perPublisher = 8, 25
	acks := make(chan name.Name, publishers*perPublisher)
	var maxPending atomic.Int64
	h.network.OnPut(func(segment *content.Segment) {
		pending := int64(h.flow.Pending())
		for {
			current := maxPending.Load()
			if pending <= current || maxPending.CompareAndSwap(current, pending) {
				break
			}
		}
		acks <- segment.Name
	})

	ackerDone := make(chan struct{})
	go func() {
		defer close(ackerDone)
		for n := range acks {
			h.flow.Ack(n)
		}
	}()

	errs := make(chan error, publishers*perPublisher)
	var wg sync.WaitGroup
	for p := range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perPublisher {
				if err := h.flow.Publish(context.Background(), testSegment(fmt.Sprintf("/ns/p%d/%d", p, i))); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(acks)
	testutil.RequireClosed(t, ackerDone, 5*time.Second, "waiting for acker")
	close(errs)
	for err := range errs {
		t.Errorf("Publish: %v", err)
	}

	if got := maxPending.Load(); got > int64(cfg.HighWater+1) {
		t.Errorf("pending reached %d, bound is %d", got, cfg.HighWater+1)
	}
	if !h.flow.FlushComplete() {
		t.Errorf("Pending = %d after every segment was acknowledged", h.flow.Pending())
	}
}

func TestPublishRequiresOpenNamespace(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)

	err := h.flow.Publish(context.Background(), testSegment("/other/a"))
	if !errors.Is(err, ErrNamespaceNotOpen) {
		t.Fatalf("Publish outside namespace = %v, want ErrNamespaceNotOpen", err)
	}
	if h.flow.Pending() != 0 || len(h.network.Puts()) != 0 {
		t.Error("rejected publish reached the holding area or the network")
	}

	h.open("/other")
	h.publish("/other/a")
	if got := len(h.flow.Sessions()); got != 2 {
		t.Errorf("Sessions = %d, want 2", got)
	}
}

func TestOpenSameNamespaceReturnsExistingSession(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	queries := len(h.network.Queries())

	again, err := h.flow.Open(context.Background(), name.MustParse(testNamespace))
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if !slices.Equal(again.Nonce, h.session.Nonce) {
		t.Error("second Open negotiated a new session")
	}
	if len(h.network.Queries()) != queries {
		t.Error("second Open expressed another start-write")
	}
}

func TestConcurrentOpenSharesNegotiation(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	ctx := context.Background()
	other := name.MustParse("/other")

	type openResult struct {
		info SessionInfo
		err  error
	}
	open := func(results chan<- openResult) {
		info, err := h.flow.Open(ctx, other)
		results <- openResult{info, err}
	}

	expressed := h.network.Changed()
	first := make(chan openResult, 1)
	go open(first)
	testutil.RequireClosed(t, expressed, 5*time.Second, "waiting for the first start-write")

	second := make(chan openResult, 1)
	go open(second)
	testutil.RequireNoReceive(t, second, 20*time.Millisecond, "second Open returned before any repository answered")

	queries := h.network.Queries()
	if len(queries) != 2 {
		t.Fatalf("live queries = %d, want 2 (one per namespace)", len(queries))
	}
	payload := encodeInfo(t, h.codec, RepositoryInfo{
		Type:         InfoTypeInfo,
		LocalName:    testRepository,
		GlobalPrefix: name.MustParse(testGlobal),
	})
	h.network.Respond(transport.Reply{
		Name:    queries[1].Name.Append([]byte("info")),
		Kind:    transport.KindData,
		Content: payload,
	})

	a := testutil.RequireReceive(t, first, 5*time.Second, "waiting for first Open")
	b := testutil.RequireReceive(t, second, 5*time.Second, "waiting for second Open")
	if a.err != nil || b.err != nil {
		t.Fatalf("Open errors: %v, %v", a.err, b.err)
	}
	if !slices.Equal(a.info.Nonce, b.info.Nonce) {
		t.Error("concurrent Opens negotiated separate sessions")
	}
	if got := len(h.flow.Sessions()); got != 2 {
		t.Errorf("Sessions = %d, want 2", got)
	}
	if got := len(h.network.Queries()); got != 2 {
		t.Errorf("live queries after Open = %d, want 2", got)
	}
}

func TestSendFailureLeavesEntryPending(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	linkDown := errors.New("link down")
	h.network.FailPuts(linkDown)

	err := h.flow.Publish(context.Background(), testSegment("/ns/a/0"))
	if !errors.Is(err, linkDown) {
		t.Fatalf("Publish = %v, want wrapped send error", err)
	}
	if h.flow.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", h.flow.Pending())
	}
}

func TestEnumerationAcknowledgesExactChild(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.AckIntervalThreshold = 0
	h := newHarness(t, cfg, true)

	h.publish("/ns/a/b/c", "/ns/a/b/cc", "/ns/a/b/d")
	enumerations := h.network.Enumerations()
	if len(enumerations) != 1 || !enumerations[0].Equal(name.MustParse("/ns/a/b")) {
		t.Fatalf("live enumerations = %v, want [/ns/a/b]", enumerations)
	}

	if delivered := h.network.DeliverEnumeration(name.MustParse("/ns/a/b"), []byte("c")); delivered != 1 {
		t.Fatalf("batch reached %d registrations, want 1", delivered)
	}
	if got := nameStrings(h.flow.PendingNames()); !slices.Equal(got, []string{"/ns/a/b/cc", "/ns/a/b/d"}) {
		t.Errorf("PendingNames = %v, want [/ns/a/b/cc /ns/a/b/d]", got)
	}
}

func TestBestEffortNeverTracks(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.BestEffort = true
	h := newHarness(t, cfg, true)

	h.publish("/ns/a/0", "/ns/a/1", "/ns/a/2")
	if !h.flow.FlushComplete() || h.flow.Pending() != 0 {
		t.Errorf("best-effort: FlushComplete=%v Pending=%d", h.flow.FlushComplete(), h.flow.Pending())
	}
	if got := len(h.network.Puts()); got != 3 {
		t.Errorf("puts = %d, want 3", got)
	}
	if len(h.network.Enumerations()) != 0 {
		t.Error("best-effort mode registered an enumeration")
	}

	// Close does not wait: the fake clock is never advanced.
	if err := h.flow.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.network.Outstanding() != 0 {
		t.Errorf("Outstanding after Close = %d", h.network.Outstanding())
	}
}

func TestCloseReportsUnacknowledgedSegment(t *testing.T) {
	cfg := config.DefaultFlow()
	h := newHarness(t, cfg, false)
	h.publish("/ns/x/1", "/ns/x/0")
	h.flow.Ack(name.MustParse("/ns/x/1"))

	result := make(chan error, 1)
	go func() { result <- h.flow.Close(context.Background()) }()
	h.clock.WaitForTimers(1)
	h.clock.Advance(cfg.ResponseTimeout)

	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Close")
	if !errors.Is(err, ErrWriteNotStable) {
		t.Fatalf("Close = %v, want ErrWriteNotStable", err)
	}
	var unstable *WriteNotStableError
	if !errors.As(err, &unstable) {
		t.Fatalf("Close error %T is not a *WriteNotStableError", err)
	}
	if unstable.Name.String() != "/ns/x/0" || unstable.Pending != 1 {
		t.Errorf("WriteNotStableError = %+v, want /ns/x/0 with 1 pending", unstable)
	}
	if !strings.Contains(err.Error(), "/ns/x/0") {
		t.Errorf("error message %q does not name the segment", err)
	}
	if h.network.Outstanding() != 0 {
		t.Errorf("Outstanding after failed Close = %d, want 0", h.network.Outstanding())
	}

	if err := h.flow.Publish(context.Background(), testSegment("/ns/x/2")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
	if _, err := h.flow.Open(context.Background(), name.MustParse("/later")); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close = %v, want ErrClosed", err)
	}
	if err := h.flow.Close(context.Background()); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestCloseRejectsGatedPublisher(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.HighWater = 1
	cfg.LowWater = 0
	h := newHarness(t, cfg, true)
	ctx := context.Background()

	h.publish("/ns/a/0")
	blocked := make(chan error, 1)
	go func() { blocked <- h.flow.Publish(ctx, testSegment("/ns/a/1")) }()
	h.clock.WaitForTimers(1)

	// Waits at the draining gate without inserting.
	gated := make(chan error, 1)
	go func() { gated <- h.flow.Publish(ctx, testSegment("/ns/a/2")) }()
	h.clock.WaitForTimers(2)

	result := make(chan error, 1)
	go func() { result <- h.flow.Close(ctx) }()

	if err := testutil.RequireReceive(t, gated, 5*time.Second, "waiting for gated publish"); !errors.Is(err, ErrClosed) {
		t.Fatalf("gated Publish = %v, want ErrClosed", err)
	}
	if err := testutil.RequireReceive(t, blocked, 5*time.Second, "waiting for blocked publish"); err != nil {
		t.Fatalf("blocked Publish = %v, want nil for a segment already sent", err)
	}

	h.flow.Ack(name.MustParse("/ns/a/0"))
	h.flow.Ack(name.MustParse("/ns/a/1"))
	if err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Close"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !h.flow.FlushComplete() {
		t.Errorf("pending after Close = %v", nameStrings(h.flow.PendingNames()))
	}
	for _, segment := range h.network.Puts() {
		if segment.Name.String() == "/ns/a/2" {
			t.Error("gated segment was sent after Close began")
		}
	}
	if h.network.Outstanding() != 0 {
		t.Errorf("Outstanding after Close = %d, want 0", h.network.Outstanding())
	}
}

func TestCloseSucceedsOnceAcknowledged(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/x/0")

	result := make(chan error, 1)
	go func() { result <- h.flow.Close(context.Background()) }()
	h.clock.WaitForTimers(1)
	h.sendData(testRepository, testGlobal, "/ns/x/0")

	if err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Close"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.network.Outstanding() != 0 {
		t.Errorf("Outstanding after Close = %d", h.network.Outstanding())
	}
}

func TestCloseRefreshesEnumeration(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), true)

	// One pending segment is far below the default interval threshold.
	h.publish("/ns/x/0")
	if len(h.network.Enumerations()) != 0 {
		t.Fatal("enumeration registered below the interval threshold")
	}

	result := make(chan error, 1)
	go func() { result <- h.flow.Close(context.Background()) }()
	h.clock.WaitForTimers(1)

	enumerations := h.network.Enumerations()
	if len(enumerations) != 1 || !enumerations[0].Equal(name.MustParse("/ns/x")) {
		t.Fatalf("enumerations during Close = %v, want [/ns/x]", enumerations)
	}
	h.network.DeliverEnumeration(name.MustParse("/ns/x"), []byte("0"))

	if err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Close"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.network.Outstanding() != 0 {
		t.Errorf("Outstanding after Close = %d", h.network.Outstanding())
	}
}

func TestCloseCancelled(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/x/0")

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- h.flow.Close(ctx) }()
	h.clock.WaitForTimers(1)
	cancel()

	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Close")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Close = %v, want context.Canceled", err)
	}
	if h.network.Outstanding() != 0 {
		t.Errorf("Outstanding after cancelled Close = %d", h.network.Outstanding())
	}
}

func TestOpenTimesOutWithoutRepository(t *testing.T) {
	network := transport.NewMemoryNetwork()
	fake := clock.Fake(testStart)
	metrics, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	flow, err := NewFlowController(Options{
		Network: network,
		Clock:   fake,
		Logger:  testutil.DiscardLogger(),
		Metrics: metrics,
		Config:  config.DefaultFlow(),
	})
	if err != nil {
		t.Fatalf("NewFlowController: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		_, err := flow.Open(context.Background(), name.MustParse("/silent"))
		result <- err
	}()
	fake.WaitForTimers(1)
	if network.Outstanding() != 1 {
		t.Fatalf("Outstanding while negotiating = %d, want 1", network.Outstanding())
	}
	fake.Advance(config.DefaultResponseTimeout)

	err = testutil.RequireReceive(t, result, 5*time.Second, "waiting for Open")
	if !errors.Is(err, ErrNoRepositoryResponse) {
		t.Fatalf("Open = %v, want ErrNoRepositoryResponse", err)
	}
	if !strings.Contains(err.Error(), "/silent") {
		t.Errorf("error %q does not name the namespace", err)
	}
	if network.Outstanding() != 0 {
		t.Errorf("Outstanding after timeout = %d, want 0", network.Outstanding())
	}
	if len(flow.Sessions()) != 0 {
		t.Error("failed negotiation left a session")
	}
	if err := flow.Publish(context.Background(), testSegment("/silent/a")); !errors.Is(err, ErrNamespaceNotOpen) {
		t.Errorf("Publish after failed Open = %v, want ErrNamespaceNotOpen", err)
	}
	if got := promtestutil.ToFloat64(metrics.sessions.WithLabelValues(sessionTimeout)); got != 1 {
		t.Errorf("timed-out sessions = %v, want 1", got)
	}
}

func TestNewFlowControllerValidatesConfig(t *testing.T) {
	cfg := config.DefaultFlow()
	cfg.LowWater = cfg.HighWater + 1
	if _, err := NewFlowController(Options{Network: transport.NewMemoryNetwork(), Config: cfg}); err == nil {
		t.Error("accepted low water above high water")
	}
	if _, err := NewFlowController(Options{Config: config.DefaultFlow()}); err == nil {
		t.Error("accepted options without a network")
	}
}

func TestFlowMetrics(t *testing.T) {
	h := newHarness(t, config.DefaultFlow(), false)
	h.publish("/ns/a/0", "/ns/a/1")
	h.flow.Ack(name.MustParse("/ns/a/0"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"published", promtestutil.ToFloat64(h.metrics.published), 2},
		{"pending", promtestutil.ToFloat64(h.metrics.pending), 1},
		{"acks removed", promtestutil.ToFloat64(h.metrics.acks.WithLabelValues(ackRemoved)), 1},
		{"sessions established", promtestutil.ToFloat64(h.metrics.sessions.WithLabelValues(sessionEstablished)), 1},
	}
	for _, check := range checks {
		if check.got != check.want {
			t.Errorf("%s = %v, want %v", check.name, check.got, check.want)
		}
	}
}
