package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEmitCommandError_StructuredForScopedCommands(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "copyjobctl serve",
		UsesStructuredLog: true,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(errors.New("boom"), "command failed", 1, &out)

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got := payload["app"]; got != "copyjobctl" {
		t.Fatalf("app = %v, want %q", got, "copyjobctl")
	}
	if got := payload["command"]; got != "copyjobctl serve" {
		t.Fatalf("command = %v, want %q", got, "copyjobctl serve")
	}
	if got := payload["exit_code"]; got != float64(1) {
		t.Fatalf("exit_code = %v, want %v", got, 1)
	}
	if got := payload["error"]; got != "boom" {
		t.Fatalf("error = %v, want %q", got, "boom")
	}
}

func TestEmitCommandError_FallsBackToJSONWhenLoggingEnvInvalid(t *testing.T) {
	t.Setenv("LOG_FORMAT", "invalid")
	t.Setenv("LOG_LEVEL", "info")
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "copyjobctl jobs watch",
		UsesStructuredLog: true,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(errors.New("boom"), "command failed", 1, &out)

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &payload); err != nil {
		t.Fatalf("expected JSON fallback log, got parse error: %v", err)
	}
}

func TestEmitCommandError_PlainOutputForInteractiveCommands(t *testing.T) {
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "copyjobctl check",
		UsesStructuredLog: false,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(errors.New("plain boom"), "command failed", 1, &out)
	if got := out.String(); got != "plain boom\n" {
		t.Fatalf("output = %q, want %q", got, "plain boom\n")
	}

	out.Reset()
	emitCommandError(context.Canceled, "command canceled", exitCodeCanceled, &out)
	if got := out.String(); got != "canceled\n" {
		t.Fatalf("output = %q, want %q", got, "canceled\n")
	}
}

func TestRunMainExitCodes(t *testing.T) {
	setCommandExecutionContext(commandExecutionContext{CommandPath: "copyjobctl check"})
	t.Cleanup(resetCommandExecutionContext)

	tests := []struct {
		name    string
		err     error
		want    int
		wantOut string
	}{
		{name: "ok", err: nil, want: 0},
		{name: "plain", err: errors.New("nope"), want: 1, wantOut: "nope\n"},
		{name: "canceled", err: fmt.Errorf("list jobs: %w", context.Canceled), want: exitCodeCanceled, wantOut: "canceled\n"},
		{name: "not ready", err: fmt.Errorf("check: %w", errNotReady), want: exitCodeNotReady},
		{name: "deadline", err: context.DeadlineExceeded, want: exitCodeFailure, wantOut: "context deadline exceeded\n"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := runMain(func() error { return tt.err }, &out)
		if got != tt.want {
			t.Fatalf("%s: runMain() = %d, want %d", tt.name, got, tt.want)
		}
		if out.String() != tt.wantOut {
			t.Fatalf("%s: output = %q, want %q", tt.name, out.String(), tt.wantOut)
		}
	}
}
