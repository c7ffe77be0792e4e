package menu

import (
	"github.com/samber/lo"
)

const defaultDevice = "System default"

// BuildDeviceItems lists the audio outputs with the system default first.
// The active device is marked in the value column.
func BuildDeviceItems(devices []string, current string) []Item {
	items := []Item{{Title: defaultDevice, ID: ""}}
	for _, d := range lo.Uniq(devices) {
		if d == "" {
			continue
		}
		items = append(items, Item{Title: d, ID: d})
	}
	for i := range items {
		if items[i].ID == current {
			items[i].Value = "active"
		}
	}
	return items
}

// IndexOf returns the position of the item with id, or 0.
func IndexOf(items []Item, id string) int {
	_, i, ok := lo.FindIndexOf(items, func(it Item) bool { return it.ID == id })
	if !ok {
		return 0
	}
	return i
}
