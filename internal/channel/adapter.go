package channel

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrStopNotSupported is returned by connections that cannot be stopped.
var ErrStopNotSupported = errors.New("connection stop not supported")

// InboundHandler is invoked by a Receiver for every inbound message.
type InboundHandler func(ctx context.Context, msg InboundMessage) error

// Adapter is the base interface every gateway implements.
type Adapter interface {
	Type() ChannelType
}

// Receiver is an adapter that can open a long-lived inbound connection.
type Receiver interface {
	Adapter
	Connect(ctx context.Context, handler InboundHandler) (Connection, error)
}

// Sender is an adapter that can deliver replies.
type Sender interface {
	Adapter
	Send(ctx context.Context, msg OutboundMessage) error
}

// Connection represents an active inbound connection.
type Connection interface {
	ChannelType() ChannelType
	Stop(ctx context.Context) error
	Running() bool
}

// BaseConnection is a default Connection implementation backed by a stop function.
type BaseConnection struct {
	channelType ChannelType
	stop        func(ctx context.Context) error
	running     atomic.Bool
}

// NewConnection creates a BaseConnection for the given channel and stop function.
func NewConnection(channelType ChannelType, stop func(ctx context.Context) error) *BaseConnection {
	conn := &BaseConnection{
		channelType: channelType,
		stop:        stop,
	}
	conn.running.Store(true)
	return conn
}

func (c *BaseConnection) ChannelType() ChannelType {
	return c.channelType
}

// Stop gracefully shuts down the connection.
func (c *BaseConnection) Stop(ctx context.Context) error {
	if c.stop == nil {
		return ErrStopNotSupported
	}
	if !c.running.Swap(false) {
		return nil
	}
	return c.stop(ctx)
}

func (c *BaseConnection) Running() bool {
	return c.running.Load()
}
