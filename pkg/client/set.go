package client

import (
	"github.com/nettable-dev/nettable/pkg/protocol"
)

// Set writes value under name. Unknown names are proposed to the server
// with the unassigned id and a placeholder in the local table; the
// server's echoed assignment supplies the authoritative id. Known names
// are updated optimistically with an incremented sequence number and
// reconciled by the server's subsequent messages.
func (c *Client) Set(name string, value protocol.Value, flags uint8) error {
	if name == "" {
		return ErrUnknownEntry
	}

	c.mu.Lock()

	var msg protocol.Message
	if e, known := c.tbl.Get(name); known {
		updated, _ := c.tbl.LocalUpdate(name, value)
		if e.ID == protocol.UnassignedID {
			// Still awaiting the server id: only the local placeholder
			// changes and nothing is sent, since there is no id to
			// update. The server's assignment replaces the placeholder.
			c.mu.Unlock()
			return nil
		}
		msg = &protocol.EntryUpdate{
			ID:        updated.ID,
			Seq:       updated.Seq,
			EntryType: value.Type,
			Value:     value,
		}
	} else {
		proposed, _ := c.tbl.Propose(name, value.Type, value, flags)
		msg = &protocol.EntryAssignment{
			Name:      name,
			EntryType: value.Type,
			ID:        protocol.UnassignedID,
			Seq:       proposed.Seq,
			Flags:     flags,
			Value:     value,
		}
	}
	c.met.entries.Set(float64(c.tbl.Len()))
	c.mu.Unlock()

	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return c.send(data)
}

// SetBoolean writes a boolean entry.
func (c *Client) SetBoolean(name string, v bool) error {
	return c.Set(name, protocol.BooleanValue(v), 0)
}

// SetDouble writes a double entry.
func (c *Client) SetDouble(name string, v float64) error {
	return c.Set(name, protocol.DoubleValue(v), 0)
}

// SetString writes a string entry.
func (c *Client) SetString(name string, v string) error {
	return c.Set(name, protocol.StringValue(v), 0)
}

// SetRaw writes a raw entry.
func (c *Client) SetRaw(name string, v []byte) error {
	return c.Set(name, protocol.RawValue(v), 0)
}

// SetBooleanArray writes a boolean array entry.
func (c *Client) SetBooleanArray(name string, v []bool) error {
	return c.Set(name, protocol.BooleanArrayValue(v), 0)
}

// SetDoubleArray writes a double array entry.
func (c *Client) SetDoubleArray(name string, v []float64) error {
	return c.Set(name, protocol.DoubleArrayValue(v), 0)
}

// SetStringArray writes a string array entry.
func (c *Client) SetStringArray(name string, v []string) error {
	return c.Set(name, protocol.StringArrayValue(v), 0)
}

// SetPersistent sets or clears the entry's persist flag on the server.
func (c *Client) SetPersistent(name string, persistent bool) error {
	c.mu.Lock()
	e, ok := c.tbl.Get(name)
	if !ok || e.ID == protocol.UnassignedID {
		c.mu.Unlock()
		return ErrUnknownEntry
	}
	flags := e.Flags &^ protocol.FlagPersistent
	if persistent {
		flags |= protocol.FlagPersistent
	}
	msg := &protocol.EntryFlagsUpdate{ID: e.ID, Flags: flags}
	c.tbl.ApplyFlagsUpdate(msg)
	fns := c.sink.drain()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(c.handler)
	}

	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return c.send(data)
}

// Delete removes the named entry on the server and locally.
func (c *Client) Delete(name string) error {
	c.mu.Lock()
	e, ok := c.tbl.Get(name)
	if !ok || e.ID == protocol.UnassignedID {
		c.mu.Unlock()
		return ErrUnknownEntry
	}
	msg := &protocol.EntryDelete{ID: e.ID}
	c.tbl.ApplyDelete(msg)
	fns := c.sink.drain()
	c.met.entries.Set(float64(c.tbl.Len()))
	c.mu.Unlock()

	for _, fn := range fns {
		fn(c.handler)
	}

	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return c.send(data)
}

// DeleteAll clears the whole table on the server and locally. The
// message carries the clear-all magic.
func (c *Client) DeleteAll() error {
	c.mu.Lock()
	c.tbl.ApplyClearAll()
	fns := c.sink.drain()
	c.met.entries.Set(0)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(c.handler)
	}

	data, err := encodeMessage(protocol.NewClearAllEntries())
	if err != nil {
		return err
	}
	return c.send(data)
}
