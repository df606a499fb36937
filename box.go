package routesight

// NormalizedBox is a rectangle in the unit coordinate space of some image,
// origin at the top left.  Detector outputs, crop regions, and symbol
// fragments are all expressed as normalized boxes so stages can remap
// between frame space and crop space without knowing pixel dimensions.
type NormalizedBox struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Clamp limits the box to the unit square.  The origin is clamped into
// [0,1] and the size is shrunk so the box does not extend past 1.0 on
// either axis.  Out of range boxes coming off a detector are corrected
// here rather than rejected.
func (b NormalizedBox) Clamp() NormalizedBox {
	x := clampf(b.X, 0, 1)
	y := clampf(b.Y, 0, 1)

	w := b.Width
	h := b.Height

	if x+w > 1 {
		w = 1 - x
	}

	if y+h > 1 {
		h = 1 - y
	}

	if w < 0 {
		w = 0
	}

	if h < 0 {
		h = 0
	}

	return NormalizedBox{X: x, Y: y, Width: w, Height: h}
}

// Empty returns true when the box has no area
func (b NormalizedBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// CenterX returns the horizontal center of the box
func (b NormalizedBox) CenterX() float32 {
	return b.X + b.Width/2
}

// CenterY returns the vertical center of the box
func (b NormalizedBox) CenterY() float32 {
	return b.Y + b.Height/2
}

// Within expresses a box given in the local space of outer in the space
// outer itself lives in.  A symbol fragment detected inside a cropped
// region uses this to travel back into full frame coordinates.
func (b NormalizedBox) Within(outer NormalizedBox) NormalizedBox {
	return NormalizedBox{
		X:      outer.X + b.X*outer.Width,
		Y:      outer.Y + b.Y*outer.Height,
		Width:  b.Width * outer.Width,
		Height: b.Height * outer.Height,
	}
}

// clampf limits val to the range of min and max
func clampf(val, min, max float32) float32 {
	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}
