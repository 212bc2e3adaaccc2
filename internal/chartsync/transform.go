package chartsync

// Transform maps normalized chart coordinates to the viewport. A point at
// fraction u of the data domain is drawn at u*ScaleX + TranslateX of the
// viewport width; the y axis works the same way. The identity shows the
// whole domain.
type Transform struct {
	ScaleX     float64
	ScaleY     float64
	TranslateX float64
	TranslateY float64
}

// Identity shows the whole domain.
var Identity = Transform{ScaleX: 1, ScaleY: 1}

// Zoom scales the x axis by factor around pivot, a viewport fraction.
func (t Transform) Zoom(factor, pivot float64) Transform {
	t.ScaleX *= factor
	t.TranslateX = pivot - (pivot-t.TranslateX)*factor
	return t.Clamp()
}

// Pan shifts the x axis by dx viewport widths.
func (t Transform) Pan(dx float64) Transform {
	t.TranslateX += dx
	return t.Clamp()
}

// Clamp keeps scales at or above 1 and the viewport inside the domain.
func (t Transform) Clamp() Transform {
	t.ScaleX = max(t.ScaleX, 1)
	t.ScaleY = max(t.ScaleY, 1)
	t.TranslateX = min(max(t.TranslateX, 1-t.ScaleX), 0)
	t.TranslateY = min(max(t.TranslateY, 1-t.ScaleY), 0)
	return t
}

// Window returns the domain fractions [u0, u1] visible through t.
func (t Transform) Window() (u0, u1 float64) {
	if t.ScaleX <= 0 {
		return 0, 1
	}
	return -t.TranslateX / t.ScaleX, (1 - t.TranslateX) / t.ScaleX
}

// Mirror returns t with the x axis of src and its own y axis.
func (t Transform) Mirror(src Transform) Transform {
	t.ScaleX = src.ScaleX
	t.TranslateX = src.TranslateX
	return t
}
