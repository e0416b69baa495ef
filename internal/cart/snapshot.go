package cart

// Snapshot is a value copy of the cart's line items taken before a campaign
// runs. Restoring it writes the saved values back into the original line
// pointers and drops lines created since.
type Snapshot struct {
	items  []*LineItem
	values []LineItem
}

// Snapshot captures the current line items.
func (c *Cart) Snapshot() Snapshot {
	s := Snapshot{
		items:  make([]*LineItem, len(c.LineItems)),
		values: make([]LineItem, len(c.LineItems)),
	}
	for i, item := range c.LineItems {
		s.items[i] = item
		s.values[i] = *item
		s.values[i].Properties = cloneProperties(item.Properties)
	}
	return s
}

// Restore swaps the snapshot back into the cart.
func (c *Cart) Restore(s Snapshot) {
	restored := make([]*LineItem, len(s.items))
	for i, item := range s.items {
		*item = s.values[i]
		item.Properties = cloneProperties(s.values[i].Properties)
		restored[i] = item
	}
	c.LineItems = restored
}
