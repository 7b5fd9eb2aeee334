package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/golang/glog"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// CANBus is a Source and Sink on a SocketCAN interface. A background
// goroutine owns the receiver and the decoder state.
type CANBus struct {
	iface string
	conn  net.Conn
	tx    *socketcan.Transmitter
	codec *CANCodec
	rx    chan received
	done  chan struct{}
	once  sync.Once
}

func DialCAN(ctx context.Context, iface string) (*CANBus, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	b := &CANBus{
		iface: iface,
		conn:  conn,
		tx:    socketcan.NewTransmitter(conn),
		codec: NewCANCodec(),
		rx:    make(chan received, QueueDepth),
		done:  make(chan struct{}),
	}
	go b.receiveLoop(socketcan.NewReceiver(conn))
	return b, nil
}

func (b *CANBus) receiveLoop(recv *socketcan.Receiver) {
	defer close(b.rx)
	for recv.Receive() {
		if recv.HasErrorFrame() {
			glog.Warningf("can %s: error frame %v", b.iface, recv.ErrorFrame())
			continue
		}
		frame := recv.Frame()
		msg, ok, err := b.codec.Decode(frame)
		if err != nil {
			glog.V(1).Infof("can %s: skip frame 0x%X: %v", b.iface, frame.ID, err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case b.rx <- received{msg: msg}:
		case <-b.done:
			return
		}
	}
	if err := recv.Err(); err != nil {
		select {
		case b.rx <- received{err: fmt.Errorf("can %s receive: %w", b.iface, err)}:
		case <-b.done:
		}
	}
}

func (b *CANBus) Receive(ctx context.Context) (Message, error) {
	select {
	case r, open := <-b.rx:
		if !open {
			return nil, ErrClosed
		}
		return r.msg, r.err
	case <-b.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *CANBus) Publish(ctx context.Context, pwm int) error {
	return b.Transmit(ctx, b.codec.EncodeCommand(pwm))
}

func (b *CANBus) Transmit(ctx context.Context, frame can.Frame) error {
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := b.tx.TransmitFrame(ctx, frame); err != nil {
		return fmt.Errorf("can %s transmit: %w", b.iface, err)
	}
	return nil
}

func (b *CANBus) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	return err
}
