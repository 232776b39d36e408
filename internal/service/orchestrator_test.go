package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clearway-labs/regent/internal/domain"
	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/domain/event"
	"github.com/clearway-labs/regent/internal/domain/query"
	"github.com/clearway-labs/regent/internal/port/generation"
	"github.com/clearway-labs/regent/internal/port/websearch"
)

type fakeRetriever struct {
	records []citation.Record
	err     error
	ready   bool
	called  bool
	panics  bool
}

func (f *fakeRetriever) Search(_ context.Context, _ string) ([]citation.Record, error) {
	f.called = true
	if f.panics {
		panic("retriever exploded")
	}
	return f.records, f.err
}

func (f *fakeRetriever) Ready() bool { return f.ready }

type fakeSearcher struct {
	analysis *websearch.Analysis
	err      error
	ready    bool
	called   bool
	panics   bool
}

func (f *fakeSearcher) Search(_ context.Context, _ string) (*websearch.Analysis, error) {
	f.called = true
	if f.panics {
		panic("searcher exploded")
	}
	return f.analysis, f.err
}

func (f *fakeSearcher) Ready() bool { return f.ready }

type fakeGenerator struct {
	out     string
	err     error
	unready bool
	called  bool
}

func (f *fakeGenerator) Generate(_ context.Context, _ generation.Request) (string, error) {
	f.called = true
	return f.out, f.err
}

func (f *fakeGenerator) Ready() bool { return !f.unready }

func allFlags() query.Query {
	return query.Query{Text: "gdpr breach reporting", UseRetrieval: true, UseCitationSearch: true, UseHints: true}
}

func allFeatures() Features {
	return Features{Retrieval: true, CitationSearch: true, Hints: true}
}

func collect(t *testing.T, ch <-chan event.Event) []event.Event {
	t.Helper()
	var events []event.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func terminalOf(t *testing.T, events []event.Event) event.Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("got %d terminal events, want exactly 1: %+v", terminals, events)
	}
	last := events[len(events)-1]
	if !last.Terminal() {
		t.Fatalf("last event is not terminal: %+v", last)
	}
	return last
}

func TestRunEmitsOrderedEvents(t *testing.T) {
	ret := &fakeRetriever{ready: true, records: []citation.Record{{Title: "internal doc"}}}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{
		CitationsFound: 2,
		Citations:      []citation.Record{{Title: "ext 1"}, {Title: "ext 2"}},
	}}
	hints := NewHintService(&fakeGenerator{out: "Draft a breach plan."}, 100)

	o := NewOrchestrator(ret, sea, hints, allFeatures())
	ch, err := o.Run(context.Background(), allFlags())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collect(t, ch)
	last := terminalOf(t, events)

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}

	first, ok := events[0].(event.TaskProgress)
	if !ok || first.Kind != event.TaskRetrieval || first.Count != 1 {
		t.Errorf("events[0] = %+v, want rag progress count=1", events[0])
	}
	second, ok := events[1].(event.TaskProgress)
	if !ok || second.Kind != event.TaskCitationSearch || second.Count != 2 {
		t.Errorf("events[1] = %+v, want sonar progress count=2", events[1])
	}
	if _, ok := events[2].(event.HintsReady); !ok {
		t.Errorf("events[2] = %+v, want hints ready", events[2])
	}

	done, ok := last.(event.Completed)
	if !ok {
		t.Fatalf("terminal = %+v, want Completed", last)
	}
	if len(done.Result.Internal) != 1 || len(done.Result.External) != 2 {
		t.Errorf("result counts = %d/%d, want 1/2", len(done.Result.Internal), len(done.Result.External))
	}
	if hint := done.Result.NextStepHint(); hint == nil || *hint != "Draft a breach plan." {
		t.Errorf("next step hint = %v", hint)
	}
}

func TestRunIsolatesRetrievalFailure(t *testing.T) {
	ret := &fakeRetriever{ready: true, err: errors.New("index offline")}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{
		CitationsFound: 1,
		Citations:      []citation.Record{{Title: "ext"}},
	}}

	o := NewOrchestrator(ret, sea, NewHintService(&fakeGenerator{out: "hint"}, 100), allFeatures())
	ch, err := o.Run(context.Background(), allFlags())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collect(t, ch)
	last := terminalOf(t, events)

	taskErr, ok := events[0].(event.TaskError)
	if !ok || taskErr.Kind != event.TaskRetrieval {
		t.Fatalf("events[0] = %+v, want rag task error", events[0])
	}
	if taskErr.Details != "index offline" {
		t.Errorf("details = %q", taskErr.Details)
	}

	done := last.(event.Completed)
	if len(done.Result.Internal) != 0 {
		t.Errorf("failed task must contribute empty results, got %d", len(done.Result.Internal))
	}
	if len(done.Result.External) != 1 {
		t.Errorf("surviving task lost its results: %d", len(done.Result.External))
	}
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	ret := &fakeRetriever{ready: true}
	o := NewOrchestrator(ret, &fakeSearcher{ready: true}, nil, allFeatures())

	q := allFlags()
	q.Text = "   "
	ch, err := o.Run(context.Background(), q)
	if err == nil {
		t.Fatal("Run accepted empty query")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error is not ErrValidation: %v", err)
	}
	if ch != nil {
		t.Error("channel must be nil on validation failure")
	}
	if ret.called {
		t.Error("no task may launch for a rejected query")
	}
}

func TestRunSkipsUnreadyBackends(t *testing.T) {
	ret := &fakeRetriever{ready: false}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{}}

	o := NewOrchestrator(ret, sea, nil, allFeatures())
	ch, err := o.Run(context.Background(), allFlags())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collect(t, ch)
	terminalOf(t, events)

	if ret.called {
		t.Error("unready retriever must not be called")
	}
	for _, ev := range events {
		if p, ok := ev.(event.TaskProgress); ok && p.Kind == event.TaskRetrieval {
			t.Errorf("unready backend emitted an event: %+v", p)
		}
	}
}

func TestRunHonorsRequestFlags(t *testing.T) {
	ret := &fakeRetriever{ready: true, records: []citation.Record{{Title: "doc"}}}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{}}

	o := NewOrchestrator(ret, sea, nil, allFeatures())
	q := allFlags()
	q.UseCitationSearch = false
	ch, err := o.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	collect(t, ch)
	if sea.called {
		t.Error("disabled searcher must not be called")
	}
	if !ret.called {
		t.Error("enabled retriever must be called")
	}
}

func TestRunHintFailureKeepsFallback(t *testing.T) {
	ret := &fakeRetriever{ready: true, records: []citation.Record{{Title: "doc"}}}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{}}
	hints := NewHintService(&fakeGenerator{err: errors.New("model down")}, 100)

	o := NewOrchestrator(ret, sea, hints, allFeatures())
	ch, err := o.Run(context.Background(), allFlags())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collect(t, ch)
	last := terminalOf(t, events)

	sawHintErr := false
	for _, ev := range events {
		if _, ok := ev.(event.HintsError); ok {
			sawHintErr = true
		}
	}
	if !sawHintErr {
		t.Error("hint failure must emit a hints error event")
	}

	done := last.(event.Completed)
	if hint := done.Result.NextStepHint(); hint == nil || *hint != fallbackHint {
		t.Errorf("fallback hint not substituted: %v", hint)
	}
}

func TestRunNoCitationsNilHint(t *testing.T) {
	ret := &fakeRetriever{ready: true, records: []citation.Record{}}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{Citations: []citation.Record{}}}
	hints := NewHintService(&fakeGenerator{out: "should not run"}, 100)

	o := NewOrchestrator(ret, sea, hints, allFeatures())
	ch, err := o.Run(context.Background(), allFlags())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collect(t, ch)
	done := terminalOf(t, events).(event.Completed)

	if done.Result.Hints == nil {
		t.Fatal("hints missing from result")
	}
	if done.Result.Hints.NextStepHint != nil {
		t.Errorf("next step hint = %v, want nil without citations", *done.Result.Hints.NextStepHint)
	}
	if len(done.Result.Hints.BasicHints) == 0 {
		t.Error("basic hints must still be populated")
	}
}

func TestRunPanicEmitsFailed(t *testing.T) {
	cases := []struct {
		name string
		ret  *fakeRetriever
		sea  *fakeSearcher
	}{
		{
			name: "searcher panics",
			ret:  &fakeRetriever{ready: true},
			sea:  &fakeSearcher{ready: true, panics: true},
		},
		{
			name: "retriever panics",
			ret:  &fakeRetriever{ready: true, panics: true},
			sea:  &fakeSearcher{ready: true, analysis: &websearch.Analysis{}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(tc.ret, tc.sea, nil, allFeatures())
			ch, err := o.Run(context.Background(), allFlags())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			events := collect(t, ch)
			last := terminalOf(t, events)

			failed, ok := last.(event.Failed)
			if !ok {
				t.Fatalf("terminal = %+v, want Failed", last)
			}
			if failed.Error != "Internal server error" || failed.Status != "error" {
				t.Errorf("failed event shape = %+v", failed)
			}
		})
	}
}

func TestRunSkipsUnreadyHintGenerator(t *testing.T) {
	ret := &fakeRetriever{ready: true, records: []citation.Record{{Title: "doc"}}}
	sea := &fakeSearcher{ready: true, analysis: &websearch.Analysis{}}
	gen := &fakeGenerator{out: "should not run", unready: true}

	o := NewOrchestrator(ret, sea, NewHintService(gen, 100), allFeatures())
	ch, err := o.Run(context.Background(), allFlags())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collect(t, ch)
	done := terminalOf(t, events).(event.Completed)

	if gen.called {
		t.Error("unready generator must not be called")
	}
	for _, ev := range events {
		switch ev.(type) {
		case event.HintsReady, event.HintsError:
			t.Errorf("unready hint capability emitted an event: %+v", ev)
		}
	}
	if done.Result.Hints != nil {
		t.Errorf("hints = %+v, want nil when the generator is unready", done.Result.Hints)
	}
}
