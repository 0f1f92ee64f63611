package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

// Feature: pharmacy-inventory, Property 1: Fetch failures are logged as structured entries
func TestProperty_FetchFailureEntriesAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("fetch failure entries carry component, source and error", prop.ForAll(
		func(source string, cause string) bool {
			var buf bytes.Buffer
			log := Component(newBufferLogger(&buf), "catalog")

			log.Error("Error fetching the products",
				zap.String("source", source),
				zap.Error(errors.New(cause)),
			)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}

			return entry["level"] == "error" &&
				entry["logger"] == "catalog" &&
				entry["source"] == source &&
				entry["error"] == cause &&
				entry["timestamp"] != nil
		},
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNew_BuildsForEveryEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", "staging"} {
		log, err := New(env)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", env, err)
		}
		if log == nil {
			t.Fatalf("New(%q) returned nil logger", env)
		}
	}
}

func TestNew_DefaultLevels(t *testing.T) {
	prod, err := New("production")
	if err != nil {
		t.Fatal(err)
	}
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Error("production logger should not log debug")
	}

	dev, err := New("development")
	if err != nil {
		t.Fatal(err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Error("development logger should log debug")
	}
}

func TestWithLevel(t *testing.T) {
	log, err := New("development", WithLevel("warn"))
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) || !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("level override was not applied")
	}

	if _, err := New("production", WithLevel("")); err != nil {
		t.Errorf("empty level should keep the default: %v", err)
	}

	if _, err := New("production", WithLevel("loud")); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestComponent_NilLoggerIsNop(t *testing.T) {
	log := Component(nil, "catalog")
	if log == nil {
		t.Fatal("Component should never return nil")
	}
	log.Info("discarded")
}
