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

// This file defines a generic Pub/Sub message listener. Receiving is
// decoupled from processing: each incoming message is handed to an
// attached Command (a chain of pipeline stages), and the message is
// acknowledged only when the whole chain succeeds. Unacknowledged
// messages come back after the ack deadline, which gives the pipeline
// at-least-once delivery without any retry bookkeeping of its own.
package cloud

import (
	"context"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// logger bridges the listener's log records into OpenTelemetry so they
// correlate with the per-message spans.
var logger = otelslog.NewLogger("message-listener")

// PubSubListener binds one Pub/Sub subscription to one processing
// command. Listeners live for the whole server process, independent of
// any API request, so they belong with the other cloud-scoped state.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener resolves the subscription by ID and returns a
// listener for it. The command may be nil at construction time and
// attached later with SetCommand, which is how the server wires
// listeners whose chains depend on state built after the cloud clients.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the processing command. A command already in
// place wins; the first wiring is authoritative.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts receiving in a background goroutine. Canceling ctx
// stops the receive loop, which is how graceful shutdown drains the
// listener.
func (m *PubSubListener) Listen(ctx context.Context) {
	logger.Info("listening", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))
			logger.Debug("received message")

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for _, e := range chainCtx.GetErrors() {
					logger.Error("error executing chain", "error", e)
				}
				// No Ack and no Nack: the message returns after the
				// ack deadline and the chain gets another attempt.
			}

			span.End()
		})
		if err != nil {
			logger.Error("error receiving data", "error", err)
		}
	}()
}
