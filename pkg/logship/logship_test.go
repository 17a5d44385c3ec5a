package logship

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// intakeServer fakes the log intake. It decodes every payload into the
// per-request message lists and answers with the configured status. When
// gate is set, handlers park on it, holding the send slot occupied.
type intakeServer struct {
	mu      sync.Mutex
	batches [][]string
	entered int
	status  int
	gate    chan struct{}
	srv     *httptest.Server
}

func newIntakeServer(t *testing.T) *intakeServer {
	is := &intakeServer{status: http.StatusAccepted}
	is.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.mu.Lock()
		is.entered++
		gate := is.gate
		is.mu.Unlock()
		if gate != nil {
			<-gate
		}

		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("payload is not gzip: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		raw, err := io.ReadAll(zr)
		if err != nil {
			t.Errorf("decompress payload: %v", err)
		}
		var entries []struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &entries); err != nil {
			t.Errorf("payload is not a JSON array: %v", err)
		}
		msgs := make([]string, len(entries))
		for i, e := range entries {
			msgs[i] = e.Message
		}

		is.mu.Lock()
		is.batches = append(is.batches, msgs)
		status := is.status
		is.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(is.srv.Close)
	return is
}

func (is *intakeServer) received() [][]string {
	is.mu.Lock()
	defer is.mu.Unlock()
	out := make([][]string, len(is.batches))
	copy(out, is.batches)
	return out
}

func (is *intakeServer) totalMessages() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	n := 0
	for _, b := range is.batches {
		n += len(b)
	}
	return n
}

func (is *intakeServer) inFlight() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	return is.entered - len(is.batches)
}

func (is *intakeServer) setStatus(status int) {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.status = status
}

func (is *intakeServer) config(batchSize, concurrency int) Config {
	return Config{
		IntakeURL:   is.srv.URL,
		APIKey:      "test-key",
		BatchSize:   batchSize,
		Concurrency: concurrency,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "relative intake URL", cfg: Config{IntakeURL: "intake.example.com/logs"}},
		{name: "negative batch size", cfg: Config{BatchSize: -1}},
		{name: "negative concurrency", cfg: Config{Concurrency: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("New error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_ZeroConfigGetsDefaults(t *testing.T) {
	ship, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := ship.Status(); got != StateStopped {
		t.Fatalf("Status = %v, want %v", got, StateStopped)
	}
	if ship.config.IntakeURL != DefaultIntakeURL {
		t.Errorf("IntakeURL = %q, want %q", ship.config.IntakeURL, DefaultIntakeURL)
	}
	if ship.config.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", ship.config.BatchSize, DefaultBatchSize)
	}
	if ship.config.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", ship.config.Concurrency, DefaultConcurrency)
	}
}

func TestLogship_EndToEnd(t *testing.T) {
	is := newIntakeServer(t)
	ship, err := New(is.config(2, 1), WithHTTPClient(is.srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 4; i++ {
		rec := RecordFromPairs("seq", i, "hostname", "h1")
		if err := ship.Submit(ctx, rec); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	waitFor(t, func() bool { return is.totalMessages() == 4 })

	// With one connection the batches arrive sequentially, so the flat
	// message stream is in submit order.
	var all []string
	for _, b := range is.received() {
		all = append(all, b...)
	}
	for i, msg := range all {
		want := fmt.Sprintf(`{"seq":%d,"hostname":"h1"}`, i)
		if msg != want {
			t.Errorf("message %d = %s, want %s", i, msg, want)
		}
	}

	if err := ship.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestLogship_StartStopLifecycle(t *testing.T) {
	is := newIntakeServer(t)
	ship, err := New(is.config(4, 1), WithHTTPClient(is.srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if ship.IsRunning() {
		t.Fatal("new instance reports running")
	}
	if err := ship.Submit(ctx, NewRecord().Set("x", 1)); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Submit before Start = %v, want ErrNotRunning", err)
	}

	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ship.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
	waitFor(t, func() bool { return ship.Status() == StateRunning })
	if !ship.IsRunning() {
		t.Fatal("running instance reports not running")
	}

	if err := ship.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if ship.IsRunning() {
		t.Fatal("stopped instance reports running")
	}
	if got := ship.Status(); got != StateStopped {
		t.Fatalf("Status after Stop = %v, want %v", got, StateStopped)
	}
	if err := ship.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestLogship_StopDropsBuffered(t *testing.T) {
	is := newIntakeServer(t)
	ship, err := New(is.config(10, 1), WithHTTPClient(is.srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return ship.Status() == StateRunning })

	// Three records stay below capacity, so nothing is dispatched.
	for i := 0; i < 3; i++ {
		if err := ship.Submit(ctx, NewRecord().Set("seq", i)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	if err := ship.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if n := is.totalMessages(); n != 0 {
		t.Fatalf("stop flushed %d records, want 0; buffered records are dropped", n)
	}

	if err := ship.Submit(ctx, NewRecord().Set("x", 1)); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Submit after Stop = %v, want ErrShutdown", err)
	}
	if err := ship.SubmitMany(ctx, []*Record{NewRecord().Set("x", 2)}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("SubmitMany after Stop = %v, want ErrShutdown", err)
	}
}

func TestLogship_StopWaitsForInFlightSend(t *testing.T) {
	is := newIntakeServer(t)
	is.gate = make(chan struct{})
	ship, err := New(is.config(2, 1), WithHTTPClient(is.srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := ship.Submit(ctx, NewRecord().Set("seq", i)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	waitFor(t, func() bool { return is.inFlight() == 1 })

	stopDone := make(chan error, 1)
	go func() { stopDone <- ship.Stop() }()

	select {
	case err := <-stopDone:
		t.Fatalf("Stop returned %v while a send was in flight", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(is.gate)
	select {
	case err := <-stopDone:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the send finished")
	}

	if got := is.totalMessages(); got != 2 {
		t.Fatalf("intake received %d records, want the in-flight batch of 2", got)
	}
}

func TestLogship_Restart(t *testing.T) {
	is := newIntakeServer(t)
	ship, err := New(is.config(2, 1), WithHTTPClient(is.srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for run := 0; run < 2; run++ {
		if err := ship.Start(ctx); err != nil {
			t.Fatalf("Start (run %d): %v", run, err)
		}
		for i := 0; i < 2; i++ {
			if err := ship.Submit(ctx, NewRecord().Set("run", run).Set("seq", i)); err != nil {
				t.Fatalf("Submit (run %d, %d): %v", run, i, err)
			}
		}
		want := (run + 1) * 2
		waitFor(t, func() bool { return is.totalMessages() == want })
		if err := ship.Stop(); err != nil {
			t.Fatalf("Stop (run %d): %v", run, err)
		}
	}
}

func TestLogship_BackpressureBlocksSubmit(t *testing.T) {
	is := newIntakeServer(t)
	is.gate = make(chan struct{})
	ship, err := New(is.config(1, 1), WithHTTPClient(is.srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return ship.Status() == StateRunning })

	// Saturate the pipeline: one send parked in the intake, everything
	// behind it backing up in a one-slot buffer.
	if err := ship.Submit(ctx, NewRecord().Set("seq", 0)); err != nil {
		t.Fatalf("Submit 0: %v", err)
	}
	waitFor(t, func() bool { return is.inFlight() == 1 })

	submitDone := make(chan error, 1)
	go func() {
		for i := 1; i <= 3; i++ {
			if err := ship.Submit(ctx, NewRecord().Set("seq", i)); err != nil {
				submitDone <- err
				return
			}
		}
		submitDone <- nil
	}()

	select {
	case err := <-submitDone:
		t.Fatalf("submissions completed against a saturated pipeline (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(is.gate)
	select {
	case err := <-submitDone:
		if err != nil {
			t.Fatalf("Submit after release: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submissions still blocked after the pipeline drained")
	}

	waitFor(t, func() bool { return is.totalMessages() == 4 })
	if err := ship.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (e *eventLog) add(entry string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
}

func (e *eventLog) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.entries))
	copy(out, e.entries)
	return out
}

type fakePlugin struct {
	name    string
	log     *eventLog
	initErr error

	mu     sync.Mutex
	gotCfg PluginConfig
}

func (p *fakePlugin) Name() string { return p.name }

func (p *fakePlugin) Initialize(ctx context.Context, cfg PluginConfig) error {
	p.mu.Lock()
	p.gotCfg = cfg
	p.mu.Unlock()
	p.log.add("init:" + p.name)
	return p.initErr
}

func (p *fakePlugin) Shutdown(ctx context.Context) error {
	p.log.add("shutdown:" + p.name)
	return nil
}

func TestLogship_PluginLifecycle(t *testing.T) {
	is := newIntakeServer(t)
	events := &eventLog{}
	alpha := &fakePlugin{name: "alpha", log: events}
	beta := &fakePlugin{name: "beta", log: events}

	ship, err := New(is.config(2, 1),
		WithHTTPClient(is.srv.Client()),
		WithPlugin(alpha),
		WithPlugin(beta),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ship.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Initialization in registration order, shutdown in reverse.
	want := []string{"init:alpha", "init:beta", "shutdown:beta", "shutdown:alpha"}
	got := events.snapshot()
	if len(got) != len(want) {
		t.Fatalf("plugin events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plugin events = %v, want %v", got, want)
		}
	}

	alpha.mu.Lock()
	cfg := alpha.gotCfg
	alpha.mu.Unlock()
	if cfg.IntakeURL != is.srv.URL {
		t.Errorf("plugin saw IntakeURL %q, want %q", cfg.IntakeURL, is.srv.URL)
	}
	if cfg.APIKey != "test-key" || cfg.BatchSize != 2 || cfg.Concurrency != 1 {
		t.Errorf("plugin saw cfg %+v", cfg)
	}
	if cfg.Logger == nil {
		t.Error("plugin saw a nil logger")
	}
}

func TestLogship_PluginInitFailureCrashes(t *testing.T) {
	is := newIntakeServer(t)
	events := &eventLog{}
	boom := errors.New("plugin exploded")
	ship, err := New(is.config(2, 1),
		WithHTTPClient(is.srv.Client()),
		WithPlugin(&fakePlugin{name: "good", log: events}),
		WithPlugin(&fakePlugin{name: "bad", log: events, initErr: boom}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := ship.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start = %v, want the plugin error", err)
	}
	if got := ship.Status(); got != StateCrashed {
		t.Fatalf("Status = %v, want %v", got, StateCrashed)
	}
	if err := ship.Submit(context.Background(), NewRecord().Set("x", 1)); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Submit after crash = %v, want ErrNotRunning", err)
	}
}

type recordingHandler struct {
	mu        sync.Mutex
	states    []string
	successes []SendSuccessEvent
	failures  []SendErrorEvent
}

func (h *recordingHandler) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Previous.String()+">"+e.Current.String())
}

func (h *recordingHandler) OnSendSuccess(e SendSuccessEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.successes = append(h.successes, e)
}

func (h *recordingHandler) OnSendError(e SendErrorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, e)
}

func (h *recordingHandler) successCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.successes)
}

func (h *recordingHandler) failureCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.failures)
}

func TestLogship_EventHandler(t *testing.T) {
	is := newIntakeServer(t)
	handler := &recordingHandler{}
	ship, err := New(is.config(2, 1),
		WithHTTPClient(is.srv.Client()),
		WithEventHandler(handler),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ship.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return ship.Status() == StateRunning })

	for i := 0; i < 2; i++ {
		if err := ship.Submit(ctx, NewRecord().Set("seq", i)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	waitFor(t, func() bool { return handler.successCount() == 1 })

	handler.mu.Lock()
	success := handler.successes[0]
	handler.mu.Unlock()
	if success.RecordCount != 2 {
		t.Errorf("success event RecordCount = %d, want 2", success.RecordCount)
	}
	if success.BytesSent <= 0 {
		t.Errorf("success event BytesSent = %d, want positive", success.BytesSent)
	}

	// A rejected batch raises the error event instead.
	is.setStatus(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		if err := ship.Submit(ctx, NewRecord().Set("seq", i)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	waitFor(t, func() bool { return handler.failureCount() == 1 })

	handler.mu.Lock()
	failure := handler.failures[0]
	handler.mu.Unlock()
	if failure.RecordCount != 2 {
		t.Errorf("error event RecordCount = %d, want 2", failure.RecordCount)
	}
	if failure.Error == nil {
		t.Error("error event carries no error")
	}

	if err := ship.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	handler.mu.Lock()
	states := append([]string(nil), handler.states...)
	handler.mu.Unlock()
	want := []string{
		"stopped>starting",
		"starting>running",
		"running>stopping",
		"stopping>stopped",
	}
	if len(states) != len(want) {
		t.Fatalf("state changes = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state changes = %v, want %v", states, want)
		}
	}
}
