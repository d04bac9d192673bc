package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf []byte) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(buf)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not a JSON object: %v\nline: %s", err, line)
		}
		records = append(records, m)
	}
	return records
}

func TestLogger_Emit_OneJSONObjectPerLine_WithRequiredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelInfo, &buf)

	log.Info("run.started", F("project", "Fabrikam"))
	log.Warning("fetch.degraded")

	records := decodeLines(t, buf.Bytes())
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		for _, key := range []string{"timestamp", "level", "logger", "event"} {
			if _, ok := rec[key]; !ok {
				t.Fatalf("record missing %q: %v", key, rec)
			}
		}
	}
	if records[0]["event"] != "run.started" || records[0]["project"] != "Fabrikam" {
		t.Fatalf("unexpected first record: %v", records[0])
	}
	if records[1]["level"] != "warning" {
		t.Fatalf("expected warning level, got %v", records[1]["level"])
	}
}

func TestLogger_MinLevel_DropsLowerRecords(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelWarning, &buf)

	log.Trace("dropped")
	log.Debug("dropped")
	log.Info("dropped")
	log.Warning("kept")
	log.Error("kept")

	records := decodeLines(t, buf.Bytes())
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestLogger_Protect_ScrubsExactAndSubstring_OnAllSinks(t *testing.T) {
	var buf bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "run.log")
	log := New(LevelInfo, &buf)
	if err := log.AttachFile(logPath); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	const secret = "pat-supersecret-123"
	log.Protect(secret)

	log.Info("auth.validated", F("token", secret))
	log.Info("http.request", F("url", "https://dev.azure.com/org?t="+secret+"&x=1"))
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fileBytes, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	for name, data := range map[string][]byte{"console": buf.Bytes(), "file": fileBytes} {
		if strings.Contains(string(data), secret) {
			t.Fatalf("%s sink leaked secret material:\n%s", name, data)
		}
		if !strings.Contains(string(data), Placeholder) {
			t.Fatalf("%s sink missing redaction placeholder:\n%s", name, data)
		}
	}

	records := decodeLines(t, buf.Bytes())
	if got := records[1]["url"]; got != "https://dev.azure.com/org?t="+Placeholder+"&x=1" {
		t.Fatalf("substring occurrence not scrubbed: %v", got)
	}
}

func TestLogger_Protect_AppliesToSecretsRegisteredMidRun(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelInfo, &buf)

	log.Info("before", F("v", "hunter2"))
	log.Protect("hunter2")
	log.Info("after", F("v", "hunter2"))

	records := decodeLines(t, buf.Bytes())
	if records[0]["v"] != "hunter2" {
		t.Fatalf("pre-registration record should be untouched: %v", records[0])
	}
	if records[1]["v"] != Placeholder {
		t.Fatalf("post-registration record should be scrubbed: %v", records[1])
	}
}

func TestLogger_Timestamps_NeverDecrease(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelInfo, &buf)

	// Simulate a wall clock stepping backwards between records.
	times := []time.Time{
		time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 3, 0, time.UTC),
	}
	i := 0
	log.core.now = func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}

	log.Info("first")
	log.Info("second")
	log.Info("third")

	records := decodeLines(t, buf.Bytes())
	var prev time.Time
	for _, rec := range records {
		ts, err := time.Parse(time.RFC3339Nano, rec["timestamp"].(string))
		if err != nil {
			t.Fatalf("bad timestamp %v: %v", rec["timestamp"], err)
		}
		if ts.Before(prev) {
			t.Fatalf("timestamp decreased: %v after %v", ts, prev)
		}
		prev = ts
	}
}

func TestLogger_NamedAndWith_PropagateToRecords(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelInfo, &buf).With(F("run_id", "abc-123"))
	child := log.Named("azdo").Named("credential")

	child.Info("provider.selected", F("source", "token"))

	records := decodeLines(t, buf.Bytes())
	rec := records[0]
	if rec["logger"] != "azdoexport.azdo.credential" {
		t.Fatalf("unexpected logger name: %v", rec["logger"])
	}
	if rec["run_id"] != "abc-123" {
		t.Fatalf("bound field missing: %v", rec)
	}
	if rec["source"] != "token" {
		t.Fatalf("call field missing: %v", rec)
	}
}

func TestLogger_ConcurrentWrites_DoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelInfo, &buf)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				log.Info("tick", F("goroutine", g), F("i", i))
			}
		}(g)
	}
	wg.Wait()

	records := decodeLines(t, buf.Bytes())
	if len(records) != 200 {
		t.Fatalf("expected 200 intact records, got %d", len(records))
	}
}

func TestLogger_Close_FlushesFileSink(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "run.log")
	log := New(LevelInfo, new(bytes.Buffer))
	if err := log.AttachFile(logPath); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	log.Info("flush.me")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "flush.me") {
		t.Fatalf("file sink missing flushed record: %s", data)
	}
	// Second close is a no-op.
	if err := log.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestParseLevel_AcceptsKnownNames_RejectsUnknown(t *testing.T) {
	for name, want := range map[string]Level{
		"trace":   LevelTrace,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warning": LevelWarning,
		"warn":    LevelWarning,
		"ERROR":   LevelError,
	} {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLogger_Enabled_ReflectsMinLevel(t *testing.T) {
	log := New(LevelInfo, new(bytes.Buffer))
	if log.Enabled(LevelTrace) {
		t.Fatal("trace should be disabled at info")
	}
	if !log.Enabled(LevelError) {
		t.Fatal("error should be enabled at info")
	}
}
