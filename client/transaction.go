package client

import (
	"context"
	"sync"
	"time"

	"github.com/fieldwire/gomodbus/modbus"
)

// transaction is one in-flight TCP call awaiting its matching response,
// keyed by MBAP transaction id. Grounded on
// Moonlight-Companies-gomodbus's transport/transaction.go.
type transaction struct {
	request   modbus.Request
	replyCh   chan *modbus.Response
	errCh     chan error
	createdAt time.Time
}

func newTransaction(req modbus.Request) *transaction {
	return &transaction{
		request:   req,
		replyCh:   make(chan *modbus.Response, 1),
		errCh:     make(chan error, 1),
		createdAt: time.Now(),
	}
}

func (t *transaction) complete(resp *modbus.Response, err error) {
	if err != nil {
		select {
		case t.errCh <- err:
		default:
		}
		return
	}
	select {
	case t.replyCh <- resp:
	default:
	}
}

func (t *transaction) wait(ctx context.Context) (*modbus.Response, error) {
	select {
	case resp := <-t.replyCh:
		return resp, nil
	case err := <-t.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// transactionPool multiplexes up to 65536 concurrent in-flight TCP
// requests by transaction id. Ids come from a wrapping 16-bit counter
// that skips ids still in use. Grounded on
// Moonlight-Companies-gomodbus's transport/transaction_pool.go.
type transactionPool struct {
	mu     sync.Mutex
	txns   map[uint16]*transaction
	nextID uint16
}

func newTransactionPool() *transactionPool {
	return &transactionPool{
		txns: make(map[uint16]*transaction),
	}
}

// place allocates the next transaction id and registers t under it.
func (p *transactionPool) place(t *transaction) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		id := p.nextID
		p.nextID++
		if _, taken := p.txns[id]; !taken {
			p.txns[id] = t
			return id
		}
	}
}

func (p *transactionPool) get(id uint16) (*transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.txns[id]
	return t, ok
}

func (p *transactionPool) release(id uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.txns, id)
}

// failAll completes every pending transaction with err. Used when the
// transport is torn down (Disconnect, or a read-loop I/O error).
func (p *transactionPool) failAll(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.txns {
		t.complete(nil, err)
		delete(p.txns, id)
	}
}
