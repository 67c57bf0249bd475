package client

import (
	"context"
	"time"

	"github.com/fieldwire/gomodbus/modbus"
)

// Blocking is the synchronous convenience wrapper spec.md §1 names as
// an external collaborator: a simple block-on adapter over the async
// Client, added here for ambient completeness (a usable library needs
// a synchronous facade even though it carries no protocol logic of its
// own). Grounded on the teacher's own top-level Client, which is
// synchronous throughout — Blocking restores that ergonomic on top of
// this repository's async-first core.
type Blocking struct {
	client  *Client
	timeout time.Duration
}

// NewBlocking wraps an existing async Client. timeout bounds every
// call issued through the wrapper; when it is zero or negative, the
// Client's own default timeout (WithTimeout) applies instead.
func NewBlocking(c *Client, timeout time.Duration) *Blocking {
	return &Blocking{client: c, timeout: timeout}
}

func (b *Blocking) ctx() (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *Blocking) ReadCoils(addr modbus.Address, qty modbus.Quantity) ([]bool, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.ReadCoils(ctx, addr, qty)
}

func (b *Blocking) ReadDiscreteInputs(addr modbus.Address, qty modbus.Quantity) ([]bool, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.ReadDiscreteInputs(ctx, addr, qty)
}

func (b *Blocking) ReadHoldingRegisters(addr modbus.Address, qty modbus.Quantity) ([]uint16, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.ReadHoldingRegisters(ctx, addr, qty)
}

func (b *Blocking) ReadInputRegisters(addr modbus.Address, qty modbus.Quantity) ([]uint16, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.ReadInputRegisters(ctx, addr, qty)
}

func (b *Blocking) WriteSingleCoil(addr modbus.Address, value bool) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.WriteSingleCoil(ctx, addr, value)
}

func (b *Blocking) WriteSingleRegister(addr modbus.Address, value uint16) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.WriteSingleRegister(ctx, addr, value)
}

func (b *Blocking) WriteMultipleCoils(addr modbus.Address, values []bool) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.WriteMultipleCoils(ctx, addr, values)
}

func (b *Blocking) WriteMultipleRegisters(addr modbus.Address, values []uint16) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.WriteMultipleRegisters(ctx, addr, values)
}

func (b *Blocking) MaskWriteRegister(addr modbus.Address, andMask, orMask uint16) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.MaskWriteRegister(ctx, addr, andMask, orMask)
}

func (b *Blocking) ReadWriteMultipleRegisters(readAddr modbus.Address, readQty modbus.Quantity, writeAddr modbus.Address, values []uint16) ([]uint16, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.ReadWriteMultipleRegisters(ctx, readAddr, readQty, writeAddr, values)
}

func (b *Blocking) SetSlave(id modbus.UnitID) {
	b.client.SetSlave(id)
}

func (b *Blocking) Disconnect() error {
	return b.client.Disconnect()
}
