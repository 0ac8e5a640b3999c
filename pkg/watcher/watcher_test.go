package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tourdesk.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func startWatcher(t *testing.T, path string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitChanged(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { callCount.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	if !d.Pending() {
		t.Error("a call should be pending while triggers keep arriving")
	}

	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
	if d.Pending() {
		t.Error("nothing should be pending after the call ran")
	}
}

func TestDebouncer_RunsLatestFunction(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var got atomic.Int32
	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })

	time.Sleep(100 * time.Millisecond)
	if got.Load() != 2 {
		t.Errorf("expected the latest function to run, got %d", got.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)
	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	path := writeDataFile(t, "initial")

	var changed atomic.Bool
	w := startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func() { changed.Store(true) }),
	)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("modified content"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitChanged(t, w, time.Second) {
		t.Fatal("expected change to be detected")
	}
	if !changed.Load() {
		t.Error("OnChange should run before the channel fires")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeDataFile(t, "initial")
	w := startWatcher(t, path, WithDebounceDuration(20*time.Millisecond))
	if w.IsPolling() {
		t.Skip("fsnotify unavailable; polling only sees the target file")
	}

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(filepath.Join(filepath.Dir(path), "unrelated.txt"), []byte("x"), 0644)

	if waitChanged(t, w, 200*time.Millisecond) {
		t.Error("a sibling file should not trigger a change")
	}
}

func TestWatcher_SQLiteSidecarCountsAsChange(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "tourdesk.db")
	os.WriteFile(db, []byte("db"), 0644)

	w := startWatcher(t, db, WithDebounceDuration(20*time.Millisecond))
	if w.IsPolling() {
		t.Skip("fsnotify unavailable")
	}

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(db+"-journal", []byte("j"), 0644)

	if !waitChanged(t, w, time.Second) {
		t.Error("writing the journal should count as a database change")
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := writeDataFile(t, "initial")
	w := startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
	)
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte("new content, longer"), 0644)
	}()

	if !waitChanged(t, w, time.Second) {
		t.Error("expected change to be detected via polling")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnvVar, "yes")

	w := startWatcher(t, writeDataFile(t, "initial"),
		WithDebounceDuration(10*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
	)
	if !w.IsPolling() {
		t.Fatalf("expected polling mode when %s is set", ForcePollEnvVar)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := writeDataFile(t, "initial")

	var (
		errMu    sync.Mutex
		gotError error
	)
	startWatcher(t, path,
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			errMu.Lock()
			gotError = err
			errMu.Unlock()
		}),
	)

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	errMu.Lock()
	defer errMu.Unlock()
	if !errors.Is(gotError, ErrFileRemoved) {
		t.Errorf("expected ErrFileRemoved, got %v", gotError)
	}
}

func TestWatcher_MissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.jsonl")

	var gotError atomic.Bool
	w := startWatcher(t, path,
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(error) { gotError.Store(true) }),
	)

	time.Sleep(80 * time.Millisecond)
	if gotError.Load() {
		t.Error("a file that never existed should not report removal")
	}

	os.WriteFile(path, []byte("created"), 0644)
	if !waitChanged(t, w, time.Second) {
		t.Error("creating the file should count as a change")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(writeDataFile(t, "initial"))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started initially")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("watcher should be started after Start()")
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should not be started after Stop()")
	}
	w.Stop()

	// Restart after stop is allowed.
	if err := w.Start(); err != nil {
		t.Errorf("restart failed: %v", err)
	}
	w.Stop()
}

func TestWatcher_Path(t *testing.T) {
	path := writeDataFile(t, "initial")
	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	absPath, _ := filepath.Abs(path)
	if w.Path() != absPath {
		t.Errorf("expected path %s, got %s", absPath, w.Path())
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"y", true},
		{"on", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tc.value)
			if got := envBool("TEST_ENV_BOOL"); got != tc.expected {
				t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}
