// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// StatusChange is an inbound presence notification: a watched (or
// unwatched — the panel filters) user changed status.
type StatusChange struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Backoff parameters for reconnection after the websocket drops.
const (
	streamInitialBackoff = 1 * time.Second
	streamMaxBackoff     = 30 * time.Second

	// streamDialTimeout bounds a single websocket dial attempt.
	streamDialTimeout = 10 * time.Second

	// streamBufferSize is the capacity of the status-change channel.
	// A full buffer drops the event: the panel's fallback poll
	// re-syncs, so a dropped delta is stale for at most one interval.
	streamBufferSize = 64
)

// streamFrame is the wire shape of one event bus message.
type streamFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event names delivered by the platform event bus.
const (
	eventStatusChange = "status_change"
)

// StreamConfig holds configuration for creating a Stream.
type StreamConfig struct {
	// URL is the websocket endpoint of the platform event bus (ws://
	// or wss://).
	URL string
	// Token authenticates the connection; sent as a bearer header on
	// the upgrade request.
	Token string
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Stream maintains a websocket subscription to the platform event bus
// and fans inbound notifications out to two channels: one for
// status-change deltas and one for reconnect signals. A reconnect
// signal fires after every successful re-dial that follows a drop,
// because an unknown number of deltas may have been missed while
// disconnected — receivers should respond with a full re-sync.
//
// The background goroutine handles the connection lifecycle: dial,
// read loop, and exponential-backoff reconnection. Call [Stream.Close]
// to shut it down; both channels are closed once the goroutine exits.
type Stream struct {
	url    string
	token  string
	logger *slog.Logger

	statusChanges chan StatusChange
	reconnects    chan struct{}
	cancel        context.CancelFunc
}

// NewStream creates a Stream and starts its background goroutine
// immediately.
func NewStream(config StreamConfig) *Stream {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stream := &Stream{
		url:           config.URL,
		token:         config.Token,
		logger:        logger,
		statusChanges: make(chan StatusChange, streamBufferSize),
		reconnects:    make(chan struct{}, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream.cancel = cancel
	go stream.run(ctx)

	return stream
}

// StatusChanges returns the channel of inbound presence deltas. Closed
// when the stream shuts down.
func (stream *Stream) StatusChanges() <-chan StatusChange {
	return stream.statusChanges
}

// Reconnects returns the channel of reconnect signals. Closed when the
// stream shuts down.
func (stream *Stream) Reconnects() <-chan struct{} {
	return stream.reconnects
}

// Close stops the background goroutine. Safe to call multiple times.
// The event channels close once the goroutine observes the
// cancellation.
func (stream *Stream) Close() {
	stream.cancel()
}

// run manages the connection lifecycle until the context is cancelled.
// The first successful connection emits no reconnect signal — the
// panel's mount-time load covers the initial sync. Every subsequent
// successful dial emits one.
func (stream *Stream) run(ctx context.Context) {
	defer close(stream.statusChanges)
	defer close(stream.reconnects)

	backoff := streamInitialBackoff
	connectedBefore := false

	for {
		connection, err := stream.dial(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			stream.logger.Warn("event stream dial failed",
				"url", stream.url,
				"error", err,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, streamMaxBackoff)
			continue
		}

		backoff = streamInitialBackoff
		if connectedBefore {
			// Deltas were missed while disconnected; tell receivers
			// to re-sync. Non-blocking: one pending signal is enough.
			select {
			case stream.reconnects <- struct{}{}:
			default:
			}
		}
		connectedBefore = true
		stream.logger.Info("event stream connected", "url", stream.url)

		err = stream.readLoop(ctx, connection)
		connection.Close()
		if ctx.Err() != nil {
			return
		}
		stream.logger.Warn("event stream disconnected", "url", stream.url, "error", err)
	}
}

// dial establishes a single websocket connection.
func (stream *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	dialContext, cancel := context.WithTimeout(ctx, streamDialTimeout)
	defer cancel()

	header := http.Header{}
	if stream.token != "" {
		header.Set("Authorization", "Bearer "+stream.token)
	}

	connection, _, err := websocket.DefaultDialer.DialContext(dialContext, stream.url, header)
	return connection, err
}

// readLoop decodes frames until the connection ends or the context is
// cancelled. Returns the error that ended the loop.
func (stream *Stream) readLoop(ctx context.Context, connection *websocket.Conn) error {
	// Unblock ReadJSON when the context is cancelled. The done
	// channel releases the watcher once this connection ends, so
	// reconnections do not pile up goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			connection.Close()
		case <-done:
		}
	}()

	for {
		var frame streamFrame
		if err := connection.ReadJSON(&frame); err != nil {
			return err
		}

		switch frame.Event {
		case eventStatusChange:
			var change StatusChange
			if err := json.Unmarshal(frame.Data, &change); err != nil {
				stream.logger.Debug("malformed status_change payload", "error", err)
				continue
			}
			select {
			case stream.statusChanges <- change:
			default:
				// Buffer full — drop. The fallback poll re-syncs.
			}
		default:
			// Forward compatibility: ignore unknown event types.
		}
	}
}
