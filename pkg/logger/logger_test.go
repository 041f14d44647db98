package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithUserID(ctx, "user-9")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-123"`)) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"user_id":"user-9"`)) {
		t.Fatalf("expected user_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected no stack when warn stack disabled")
	}
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := context.Background()
	_ = log.WithOrderID(parent, "order-1")
	log.Info(parent, "plain")

	if bytes.Contains(buf.Bytes(), []byte("order-1")) {
		t.Fatalf("child fields leaked into parent context: %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", lvl)
	}
}

func TestErrorCarriesCodeAndEnv(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Env: "staging", Output: buf})

	log.Error(context.Background(), "commit failed", pkgerrors.Wrap(pkgerrors.CodeOrderCreationFailed, errors.New("deadlock"), "place order"))

	for _, want := range []string{`"env":"staging"`, `"error_code":"ORDER_CREATION_FAILED"`, `"stack"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in entry=%s", want, buf.String())
		}
	}
}

func TestRejectedSplitsClientAndServerErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	log.Rejected(context.Background(), "cart operation rejected", pkgerrors.New(pkgerrors.CodeOutOfStock, "not enough stock"))
	entry := buf.String()
	if !strings.Contains(entry, `"level":"warn"`) || strings.Contains(entry, `"stack"`) {
		t.Fatalf("client errors should be warn without stack; entry=%s", entry)
	}
	if !strings.Contains(entry, `"error_code":"OUT_OF_STOCK"`) {
		t.Fatalf("expected error code; entry=%s", entry)
	}

	buf.Reset()
	log.Rejected(context.Background(), "cart operation rejected", errors.New("connection reset"))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("untyped errors should log at error; entry=%s", buf.String())
	}

	buf.Reset()
	log.Rejected(context.Background(), "noop", nil)
	if buf.Len() != 0 {
		t.Fatalf("nil error must not log")
	}
}
