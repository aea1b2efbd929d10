package mactable

// SetSlot overwrites a slot directly, bypassing Learn's duplicate guard.
func (t *Table) SetSlot(slot int, e Entry) {
	t.slots[slot] = e
}
