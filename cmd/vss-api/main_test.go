package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLoggerParsesLevel(t *testing.T) {
	logger := newLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger := newLogger("chatty")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be disabled for unknown level name")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be enabled for unknown level name")
	}
}

func TestNewLoggerWarnHidesInfo(t *testing.T) {
	logger := newLogger("warn")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be disabled at warn")
	}
}
