package menu

import (
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/ui"
)

// Widget is a modal list the host shows over the video.
type Widget struct {
	title    string
	items    []Item
	selected int
	visible  bool
}

func NewWidget(title string) *Widget {
	return &Widget{title: title}
}

// Show replaces the items and opens the list with selected highlighted.
func (w *Widget) Show(items []Item, selected int) {
	w.items = items
	w.selected = 0
	if selected >= 0 && selected < len(items) {
		w.selected = selected
	}
	w.visible = true
}

func (w *Widget) Hide()         { w.visible = false }
func (w *Widget) Visible() bool { return w.visible }
func (w *Widget) Items() []Item { return w.items }
func (w *Widget) Selected() int { return w.selected }

// SelectedItem returns the highlighted item, or the zero Item when empty.
func (w *Widget) SelectedItem() Item {
	if w.selected >= 0 && w.selected < len(w.items) {
		return w.items[w.selected]
	}
	return Item{}
}

// MoveSelection moves the highlight with wrapping.
func (w *Widget) MoveSelection(delta int) {
	if len(w.items) == 0 {
		return
	}
	w.selected = ((w.selected+delta)%len(w.items) + len(w.items)) % len(w.items)
}

var (
	titleColor = sdl.Color{R: 255, G: 255, B: 255, A: 255}
	valueColor = sdl.Color{R: 148, G: 163, B: 184, A: 255}
	panelTop   = sdl.Color{R: 15, G: 23, B: 42, A: 230}
	panelEnd   = sdl.Color{R: 30, G: 41, B: 59, A: 230}
)

// Draw renders the list centred in a screenW×screenH area.
func (w *Widget) Draw(renderer *sdl.Renderer, screenW, screenH int32, fonts *ui.Fonts) error {
	if !w.visible || fonts == nil {
		return nil
	}

	const itemHeight = int32(44)
	width := min(screenW-40, 560)
	height := min(screenH-40, 80+itemHeight*int32(len(w.items)))
	x, y := (screenW-width)/2, (screenH-height)/2
	ui.DrawShade(renderer, sdl.Rect{X: x, Y: y, W: width, H: height}, panelTop, panelEnd)

	if _, err := ui.RenderText(renderer, w.title, x+24, y+16, titleColor, fonts.Title); err != nil {
		return err
	}

	top := y + 64
	for i, item := range w.items {
		rowY := top + int32(i)*itemHeight
		if rowY+itemHeight > y+height {
			break
		}
		if i == w.selected {
			renderer.SetDrawColor(51, 65, 85, 255)
			renderer.FillRect(&sdl.Rect{X: x + 12, Y: rowY, W: width - 24, H: itemHeight - 4})
		}
		if _, err := ui.RenderText(renderer, item.Title, x+24, rowY+10, titleColor, fonts.Body); err != nil {
			return err
		}
		if item.Value != "" {
			vx := x + width - 24 - ui.TextWidth(fonts.Body, item.Value)
			if _, err := ui.RenderText(renderer, item.Value, vx, rowY+10, valueColor, fonts.Body); err != nil {
				return err
			}
		}
	}
	return nil
}
