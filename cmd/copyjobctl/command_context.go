package main

import (
	"sync"

	"github.com/spf13/cobra"
)

// structuredLogAnnotation marks long-running commands whose output, errors
// included, goes through slog.
const structuredLogAnnotation = "copyjobctl/structured-log"

type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	commandContextMu sync.RWMutex
	commandContext   commandExecutionContext
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandContextMu.Lock()
	defer commandContextMu.Unlock()
	commandContext = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

func currentCommandExecutionContext() commandExecutionContext {
	commandContextMu.RLock()
	defer commandContextMu.RUnlock()
	return commandContext
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[structuredLogAnnotation] == "true" {
			return true
		}
	}
	return false
}

func structuredLog() map[string]string {
	return map[string]string{structuredLogAnnotation: "true"}
}
