package input

import "github.com/veandco/go-sdl2/sdl"

// Keys turns the SDL keyboard snapshot into edges. Call Update once per frame
// and query the codes passed to it.
type Keys struct {
	down map[sdl.Scancode]bool
	was  map[sdl.Scancode]bool
}

func NewKeys() Keys {
	return Keys{down: make(map[sdl.Scancode]bool), was: make(map[sdl.Scancode]bool)}
}

// Update samples codes from keyState, as returned by sdl.GetKeyboardState.
func (k *Keys) Update(keyState []uint8, codes ...sdl.Scancode) {
	for _, c := range codes {
		k.was[c] = k.down[c]
		k.down[c] = int(c) < len(keyState) && keyState[c] != 0
	}
}

// Pressed is true on the frame the key went down.
func (k *Keys) Pressed(c sdl.Scancode) bool { return k.down[c] && !k.was[c] }

// Released is true on the frame the key came up.
func (k *Keys) Released(c sdl.Scancode) bool { return !k.down[c] && k.was[c] }

// Held is true while the key is down, including the first frame.
func (k *Keys) Held(c sdl.Scancode) bool { return k.down[c] }

// Any reports whether any of codes went down this frame.
func (k *Keys) Any(codes ...sdl.Scancode) bool {
	for _, c := range codes {
		if k.Pressed(c) {
			return true
		}
	}
	return false
}
