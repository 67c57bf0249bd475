package client

import (
	"context"

	"github.com/fieldwire/gomodbus/modbus"
)

// ReadCoils reads qty coils starting at addr.
func (c *Client) ReadCoils(ctx context.Context, addr modbus.Address, qty modbus.Quantity) ([]bool, error) {
	resp, err := c.Call(ctx, modbus.Request{Op: modbus.FcReadCoils, Addr: addr, Quantity: qty})
	if err != nil {
		return nil, err
	}
	return resp.Coils, nil
}

// ReadDiscreteInputs reads qty discrete inputs starting at addr.
func (c *Client) ReadDiscreteInputs(ctx context.Context, addr modbus.Address, qty modbus.Quantity) ([]bool, error) {
	resp, err := c.Call(ctx, modbus.Request{Op: modbus.FcReadDiscreteInputs, Addr: addr, Quantity: qty})
	if err != nil {
		return nil, err
	}
	return resp.Coils, nil
}

// ReadHoldingRegisters reads qty holding registers starting at addr.
func (c *Client) ReadHoldingRegisters(ctx context.Context, addr modbus.Address, qty modbus.Quantity) ([]uint16, error) {
	resp, err := c.Call(ctx, modbus.Request{Op: modbus.FcReadHoldingRegisters, Addr: addr, Quantity: qty})
	if err != nil {
		return nil, err
	}
	return resp.Registers, nil
}

// ReadInputRegisters reads qty input registers starting at addr.
func (c *Client) ReadInputRegisters(ctx context.Context, addr modbus.Address, qty modbus.Quantity) ([]uint16, error) {
	resp, err := c.Call(ctx, modbus.Request{Op: modbus.FcReadInputRegisters, Addr: addr, Quantity: qty})
	if err != nil {
		return nil, err
	}
	return resp.Registers, nil
}

// WriteSingleCoil writes value to the coil at addr.
func (c *Client) WriteSingleCoil(ctx context.Context, addr modbus.Address, value bool) error {
	_, err := c.Call(ctx, modbus.Request{Op: modbus.FcWriteSingleCoil, Addr: addr, CoilValue: value})
	return err
}

// WriteSingleRegister writes value to the holding register at addr.
func (c *Client) WriteSingleRegister(ctx context.Context, addr modbus.Address, value uint16) error {
	_, err := c.Call(ctx, modbus.Request{Op: modbus.FcWriteSingleRegister, Addr: addr, RegValue: value})
	return err
}

// WriteMultipleCoils writes values starting at addr.
func (c *Client) WriteMultipleCoils(ctx context.Context, addr modbus.Address, values []bool) error {
	_, err := c.Call(ctx, modbus.Request{Op: modbus.FcWriteMultipleCoils, Addr: addr, Coils: values})
	return err
}

// WriteMultipleRegisters writes values starting at addr.
func (c *Client) WriteMultipleRegisters(ctx context.Context, addr modbus.Address, values []uint16) error {
	_, err := c.Call(ctx, modbus.Request{Op: modbus.FcWriteMultipleRegisters, Addr: addr, Registers: values})
	return err
}

// MaskWriteRegister performs a read-modify-write of the holding register
// at addr: result = (current AND andMask) OR (orMask AND NOT andMask).
func (c *Client) MaskWriteRegister(ctx context.Context, addr modbus.Address, andMask, orMask uint16) error {
	_, err := c.Call(ctx, modbus.Request{Op: modbus.FcMaskWriteRegister, Addr: addr, AndMask: andMask, OrMask: orMask})
	return err
}

// ReadWriteMultipleRegisters atomically writes values at writeAddr and
// reads readQty registers starting at readAddr in one transaction.
func (c *Client) ReadWriteMultipleRegisters(ctx context.Context, readAddr modbus.Address, readQty modbus.Quantity, writeAddr modbus.Address, values []uint16) ([]uint16, error) {
	resp, err := c.Call(ctx, modbus.Request{
		Op:           modbus.FcReadWriteMultipleRegisters,
		ReadAddr:     readAddr,
		ReadQuantity: readQty,
		WriteAddr:    writeAddr,
		Registers:    values,
	})
	if err != nil {
		return nil, err
	}
	return resp.Registers, nil
}
