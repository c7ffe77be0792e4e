package menu

// Item is one selectable row.
type Item struct {
	Title string
	Value string
	// ID is what the caller acts on when the item is chosen.
	ID string
}
