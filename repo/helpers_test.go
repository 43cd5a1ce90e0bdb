// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/repowrite/lib/clock"
	"github.com/bureau-foundation/repowrite/lib/codec"
	"github.com/bureau-foundation/repowrite/lib/config"
	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
	"github.com/bureau-foundation/repowrite/lib/testutil"
	"github.com/bureau-foundation/repowrite/transport"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testNamespace  = "/ns"
	testRepository = "repo-a"
	testGlobal     = "/repo/a"
)

// harness is a FlowController with an established session on
// testNamespace, bound to testRepository, over a MemoryNetwork and a
// fake clock that only moves when the test advances it.
type harness struct {
	t       *testing.T
	network *transport.MemoryNetwork
	clock   *clock.FakeClock
	codec   *codec.Codec
	metrics *Metrics
	logs    *testutil.LogRecorder
	flow    *FlowController
	session SessionInfo
}

func newHarness(t *testing.T, cfg config.FlowConfig, withEnumerator bool) *harness {
	t.Helper()

	metrics, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	logs, logger := testutil.NewLogRecorder()
	h := &harness{
		t:       t,
		network: transport.NewMemoryNetwork(),
		clock:   clock.Fake(testStart),
		codec:   codec.MustNew(),
		metrics: metrics,
		logs:    logs,
	}

	options := Options{
		Network: h.network,
		Codec:   h.codec,
		Clock:   h.clock,
		Logger:  logger,
		Metrics: metrics,
		Config:  cfg,
	}
	if withEnumerator {
		options.Enumerator = h.network
	}
	h.flow, err = NewFlowController(options)
	if err != nil {
		t.Fatalf("NewFlowController: %v", err)
	}

	h.session = h.open(testNamespace)
	return h
}

// open negotiates a session for namespace with the test repository
// answering.
func (h *harness) open(namespace string) SessionInfo {
	h.t.Helper()
	answerStartWrite(h.t, h.network, h.codec, testRepository, name.MustParse(testGlobal))
	defer h.network.OnExpress(nil)

	session, err := h.flow.Open(context.Background(), name.MustParse(namespace))
	if err != nil {
		h.t.Fatalf("Open(%s): %v", namespace, err)
	}
	return session
}

func (h *harness) publish(uris ...string) {
	h.t.Helper()
	for _, uri := range uris {
		if err := h.flow.Publish(context.Background(), testSegment(uri)); err != nil {
			h.t.Fatalf("Publish(%s): %v", uri, err)
		}
	}
}

// sendData plays the repository acknowledging names on the session's
// start-write registration.
func (h *harness) sendData(localName, globalPrefix string, uris ...string) int {
	h.t.Helper()
	payload := encodeInfo(h.t, h.codec, RepositoryInfo{
		Type:         InfoTypeData,
		LocalName:    localName,
		GlobalPrefix: name.MustParse(globalPrefix),
		Names:        parseNames(uris...),
	})
	return h.network.Respond(transport.Reply{
		Name:    StartWriteName(h.session.Namespace, h.session.Nonce).Append([]byte("data")),
		Kind:    transport.KindData,
		Content: payload,
	})
}

// answerStartWrite makes network answer every start-write query with an
// INFO reply identifying localName.
func answerStartWrite(t *testing.T, network *transport.MemoryNetwork, c *codec.Codec, localName string, globalPrefix name.Name) {
	t.Helper()
	payload := encodeInfo(t, c, RepositoryInfo{
		Type:         InfoTypeInfo,
		LocalName:    localName,
		GlobalPrefix: globalPrefix,
	})
	network.OnExpress(func(query transport.Query) {
		network.Respond(transport.Reply{
			Name:    query.Name.Append([]byte("info")),
			Kind:    transport.KindData,
			Content: payload,
		})
	})
}

func encodeInfo(t *testing.T, c *codec.Codec, info RepositoryInfo) []byte {
	t.Helper()
	data, err := EncodeRepositoryInfo(c, info)
	if err != nil {
		t.Fatalf("EncodeRepositoryInfo: %v", err)
	}
	return data
}

func testSegment(uri string) *content.Segment {
	return &content.Segment{Name: name.MustParse(uri), Payload: []byte(uri)}
}

func parseNames(uris ...string) []name.Name {
	result := make([]name.Name, len(uris))
	for i, uri := range uris {
		result[i] = name.MustParse(uri)
	}
	return result
}

func nameStrings(list []name.Name) []string {
	result := make([]string, len(list))
	for i, n := range list {
		result[i] = n.String()
	}
	return result
}

// recordingEnumerator keeps every enumeration handler so tests can
// deliver batches to a specific generation, including retracted ones.
type recordingEnumerator struct {
	mu            sync.Mutex
	registrations []*recordedEnumeration
	err           error
}

type recordedEnumeration struct {
	prefix    name.Name
	handler   transport.EnumerationHandler
	retracted atomic.Bool
}

func (r *recordedEnumeration) Retract() error {
	r.retracted.Store(true)
	return nil
}

func (e *recordingEnumerator) Enumerate(_ context.Context, prefix name.Name, handler transport.EnumerationHandler) (transport.Registration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	registration := &recordedEnumeration{prefix: prefix, handler: handler}
	e.registrations = append(e.registrations, registration)
	return registration, nil
}

func (e *recordingEnumerator) all() []*recordedEnumeration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*recordedEnumeration(nil), e.registrations...)
}

// deliver sends children under the prefix of the i-th registration,
// whether or not it has been retracted.
func (e *recordingEnumerator) deliver(i int, children ...string) {
	registration := e.all()[i]
	batch := transport.EnumerationBatch{Prefix: registration.prefix}
	for _, child := range children {
		batch.Children = append(batch.Children, []byte(child))
	}
	registration.handler(batch)
}
