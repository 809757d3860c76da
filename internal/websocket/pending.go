package websocket

import (
	"sync"

	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
)

// pendingReplies routes page replies to the request waiting for them.
type pendingReplies struct {
	mu      sync.Mutex
	waiters map[string]chan *IncomingMessage
	closed  bool
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{waiters: make(map[string]chan *IncomingMessage)}
}

func (p *pendingReplies) add(id string) (<-chan *IncomingMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, apperrors.ErrWebSocketClosed
	}
	ch := make(chan *IncomingMessage, 1)
	p.waiters[id] = ch
	return ch, nil
}

// resolve delivers msg to its waiter. It reports false for unknown or
// already answered IDs.
func (p *pendingReplies) resolve(msg *IncomingMessage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.waiters[msg.ID]
	if !ok {
		return false
	}
	delete(p.waiters, msg.ID)
	ch <- msg
	return true
}

func (p *pendingReplies) remove(id string) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

func (p *pendingReplies) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// close wakes every waiter with a closed channel and refuses new ones.
func (p *pendingReplies) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.waiters {
		close(ch)
		delete(p.waiters, id)
	}
}
