// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) provides the building blocks for
// creating workflows as sequences of commands. This file defines the core
// interfaces that govern the behavior of all components within the pattern.
// By using interfaces, the framework stays flexible: different
// implementations of commands, chains, and contexts are interchangeable.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are constant keys used to manage the primary data flow
// within a BaseChain.
const (
	// CtxIn is the default key for the primary input of a command. The BaseChain
	// automatically populates this key with the output of the previous command.
	CtxIn = "__IN__"
	// CtxOut is the default key where a command places its primary output.
	// The BaseChain picks up this value to use as the input of the next command.
	CtxOut = "__OUT__"
)

// Context defines the interface for the shared state object passed through a
// chain of commands. It acts as a property bag for a single workflow
// execution, carrying data, errors, and cleanup obligations between commands.
type Context interface {
	// SetContext sets the standard Go `context.Context`, used for
	// cancellation signals and OpenTelemetry trace propagation.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go `context.Context`.
	GetContext() context.Context

	// Add stores a key-value pair in the context. This is the primary way
	// commands share data. It returns the Context for fluent chaining.
	Add(key string, value interface{}) Context

	// AddError records an error that occurred within a command. The key
	// should be the name of the command that produced the error.
	AddError(key string, err error)

	// GetErrors returns all errors collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value from the context by its key.
	Get(key string) interface{}

	// Remove deletes a key-value pair from the context.
	Remove(key string)

	// HasErrors checks if any errors have been recorded in the context.
	HasErrors() bool

	// SetTaskID associates the context with the analysis task it serves, so
	// every command can report status against the right task.
	SetTaskID(taskID string)

	// GetTaskID returns the associated task id, or "" when the workflow is
	// not task-scoped.
	GetTaskID() string

	// AddTempFile tracks a temporary file created during the workflow so the
	// context can clean it up at the end.
	AddTempFile(file string)

	// GetTempFiles returns all tracked temporary file paths.
	GetTempFiles() []string

	// Close removes all temporary files tracked by AddTempFile. It should be
	// deferred at the start of a workflow.
	Close()
}

// Executable is a simple interface for any object with core execution logic.
type Executable interface {
	// Execute contains the primary business logic. It reads its inputs from
	// the Context and writes its outputs back to it.
	Execute(context Context)
}

// Command represents an atomic, testable, thread-safe unit of work. It is
// the fundamental building block of a workflow.
type Command interface {
	Executable

	// GetName returns the unique name of the command, used for logging and telemetry.
	GetName() string

	// GetInputParam returns the context key holding this command's primary input.
	GetInputParam() string

	// GetOutputParam returns the context key this command stores its output under.
	GetOutputParam() string

	// IsExecutable checks whether the command can run against the current
	// state of the Context. It is a precondition check before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the OpenTelemetry tracer for this command.
	GetTracer() trace.Tracer

	// GetMeter returns the OpenTelemetry meter for creating metrics.
	GetMeter() metric.Meter

	// GetSuccessCounter returns a metric counter for successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns a metric counter for failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain represents a sequence of commands. A Chain is itself a Command, so
// chains can be nested within other chains. The Chain orchestrates the
// execution of its child commands.
type Chain interface {
	Command

	// ContinueOnFailure tells the chain whether to keep executing after one
	// of its commands adds an error to the context.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
