package courier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sufield/courier/internal/adapters/secondary/transport"
)

// SendMessage asks Capabilities to deliver one payload. Exactly one of OK
// and Fail is invoked, once. Nil continuations are skipped.
type SendMessage struct {
	Address  string
	Content  string
	Material ClientMaterial

	OK   func()
	Fail func(error)
}

// ListenMessage asks Capabilities to start the receiver.
//
// OK receives the bound endpoint once the socket accepts connections; Fail
// receives a bind or material error. When the receiver is already listening
// neither is invoked. OnError receives accept-loop failures that occur after
// OK; when it is nil those failures go to Fail.
type ListenMessage struct {
	Host     string
	Port     int
	Material ServerMaterial

	OK      func(Endpoint)
	Fail    func(error)
	OnError func(error)
}

// Capabilities exposes send, listen and close as asynchronous messages.
//
// Every message is queued and handled in order on one dispatch goroutine,
// and every continuation and handler delivery runs on that same goroutine,
// so callers observe results one at a time and never concurrently. Network
// waits (handshakes, responses, draining) happen off the dispatch goroutine,
// so a slow send never delays other messages. Continuations should not
// block for long; they hold up every later result.
//
// Example:
//
//	caps := courier.NewCapabilities(courier.HandlerFunc(func(ctx context.Context, d courier.Delivery) {
//		log.Printf("received %q at %s", d.Content, d.Address)
//	}))
//	defer caps.Stop(context.Background())
//
//	caps.Listen(courier.ListenMessage{
//		Host:     "localhost",
//		Port:     7847,
//		Material: serverMaterial,
//		OK: func(ep courier.Endpoint) {
//			caps.Send(courier.SendMessage{
//				Address:  "https://localhost:7847/#tok",
//				Content:  `{"a":1}`,
//				Material: clientMaterial,
//				OK:       func() { log.Print("delivered") },
//				Fail:     func(err error) { log.Print(err) },
//			})
//		},
//		Fail: func(err error) { log.Fatal(err) },
//	})
type Capabilities struct {
	sender   *Sender
	receiver *Receiver
	loop     *dispatcher
	logger   *slog.Logger

	// mu guards stopping and pending. Once stopping is set pending only
	// decreases, and idle is closed when it reaches zero.
	mu       sync.Mutex
	stopping bool
	pending  int
	idle     chan struct{}
}

// NewCapabilities creates Capabilities around a fresh Sender and an idle
// Receiver delivering to handler. Options apply to both.
//
// A delivery is acknowledged to its sender only after handler has returned
// on the dispatch goroutine, so a sender that sees 200 knows its payload was
// handled. A delivery that arrives after Stop has stopped the dispatch
// goroutine is dropped and its connection is aborted.
func NewCapabilities(handler Handler, opts ...Option) *Capabilities {
	o := collect(opts)
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Capabilities{
		sender: NewSender(opts...),
		loop:   newDispatcher(),
		logger: logger,
		idle:   make(chan struct{}),
	}
	c.receiver = NewReceiver(HandlerFunc(func(ctx context.Context, d Delivery) {
		handled := make(chan struct{})
		dctx := context.WithoutCancel(ctx)
		if !c.loop.post(func() {
			defer close(handled)
			handler.Deliver(dctx, d)
		}) {
			c.logger.Warn("delivery dropped after stop", "delivery_id", d.ID)
			transport.AbortDelivery()
		}
		select {
		case <-handled:
		case <-ctx.Done():
		}
	}), opts...)
	return c
}

// Send queues msg. The send itself has no deadline. Messages sent after
// Stop has begun are dropped without invoking either continuation.
func (c *Capabilities) Send(msg SendMessage) {
	if !c.begin() {
		c.logger.Warn("send dropped after stop", "address", msg.Address)
		return
	}
	c.post(func() {
		go func() {
			defer c.done()
			err := c.sender.Send(context.Background(), SendRequest{
				Address:  msg.Address,
				Content:  msg.Content,
				Material: msg.Material,
			})
			c.post(func() {
				if err != nil {
					call1(msg.Fail, err)
					return
				}
				call0(msg.OK)
			}, nil)
		}()
	}, c.done)
}

// Listen queues msg. Binding happens on the dispatch goroutine, so a later
// Listen or Close observes its outcome. A Listen that reaches the dispatch
// goroutine after Stop has begun is dropped.
func (c *Capabilities) Listen(msg ListenMessage) {
	onError := msg.OnError
	if onError == nil {
		onError = msg.Fail
	}

	c.post(func() {
		ep, ok, err := c.bind(msg, onError)
		switch {
		case !ok:
			c.logger.Warn("listen dropped after stop")
		case errors.Is(err, ErrAlreadyListening):
			c.logger.Debug("listen ignored, receiver already listening")
		case err != nil:
			call1(msg.Fail, err)
		default:
			if msg.OK != nil {
				msg.OK(ep)
			}
		}
	}, nil)
}

// bind starts the receiver unless Stop has begun. Holding mu across the
// bind means Stop either sees the binding and closes it or bind sees
// stopping and skips it.
func (c *Capabilities) bind(msg ListenMessage, onError func(error)) (Endpoint, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping {
		return Endpoint{}, false, nil
	}
	ep, err := c.receiver.Listen(context.Background(), ListenRequest{
		Host:     msg.Host,
		Port:     msg.Port,
		Material: msg.Material,
		OnError: func(err error) {
			c.post(func() { call1(onError, err) }, nil)
		},
	})
	return ep, true, err
}

// Close queues a shutdown of the receiver. ack runs once every in-flight
// delivery has finished and the receiver is idle again. When the receiver
// is idle, or Stop has begun, ack is never invoked.
func (c *Capabilities) Close(ack func()) {
	if !c.begin() {
		c.logger.Debug("close dropped after stop")
		return
	}
	c.post(func() {
		if _, listening := c.receiver.Endpoint(); !listening {
			c.done()
			c.logger.Debug("close ignored, receiver not listening")
			return
		}
		go func() {
			defer c.done()
			err := c.receiver.Close(context.Background())
			if errors.Is(err, ErrNotListening) {
				return
			}
			c.post(func() { call0(ack) }, nil)
		}()
	}, c.done)
}

// Stop closes the receiver if it is listening, waits for outstanding sends
// and closes to report, runs every queued continuation and stops the
// dispatch goroutine. Messages queued after Stop begins are dropped.
//
// When ctx ends first, open connections are closed forcibly and Stop
// returns ctx.Err() without waiting for outstanding sends. Stop must not be
// called from a continuation or handler.
func (c *Capabilities) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.stopping {
		c.stopping = true
		if c.pending == 0 {
			close(c.idle)
		}
	}
	c.mu.Unlock()

	var stopErr error
	if err := c.receiver.Close(ctx); err != nil && !errors.Is(err, ErrNotListening) {
		stopErr = err
	}

	select {
	case <-c.idle:
	case <-ctx.Done():
		if stopErr == nil {
			stopErr = ctx.Err()
		}
	}

	c.loop.stop()
	return stopErr
}

// begin accounts for one send or close, reporting false once Stop has begun.
func (c *Capabilities) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping {
		return false
	}
	c.pending++
	return true
}

func (c *Capabilities) done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.stopping && c.pending == 0 {
		close(c.idle)
	}
}

// post queues fn, running dropped (if non-nil) when the dispatcher has stopped.
func (c *Capabilities) post(fn, dropped func()) {
	if c.loop.post(fn) {
		return
	}
	c.logger.Warn("message dropped after stop")
	if dropped != nil {
		dropped()
	}
}

func call0(fn func()) {
	if fn != nil {
		fn()
	}
}

func call1(fn func(error), err error) {
	if fn != nil {
		fn(err)
	}
}
