package model

// Item is one instance on the map. Type is an item catalog id.
type Item struct {
	Type    string
	Charges int
	Active  bool
	// Birthday is the turn the item was created; item hooks use it for decay.
	Birthday int64
}

// ItemHook is the item behavior layer. The map only decides when to call it.
type ItemHook interface {
	// ProcessActive runs one turn of an active item at p. Returning false
	// removes the item from the map.
	ProcessActive(it *Item, p Tripoint, turn int64) bool
	// Signal delivers a remote signal to an item that listens for it.
	// Returning false removes the item.
	Signal(it *Item, p Tripoint, signal string) bool
	// Destroyed reports an item removed by a field.
	Destroyed(it Item, p Tripoint, field string)
}
