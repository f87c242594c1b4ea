package control

const (
	controlWidth  = 120
	controlHeight = 36
	anchorOffset  = 40
	edgeMargin    = 10
)

// Position places the control at the bottom-right of rect and clamps it into
// a viewport of width vw and height vh so it stays fully visible.
func Position(rect Rect, vw, vh float64) (top, left float64) {
	top = rect.Bottom - anchorOffset
	left = rect.Right - controlWidth

	if left < edgeMargin {
		left = rect.Left + edgeMargin
	}
	if top < edgeMargin {
		top = rect.Top + edgeMargin
	}
	if left+controlWidth > vw-edgeMargin {
		left = vw - controlWidth - edgeMargin
	}
	if top+controlHeight > vh-edgeMargin {
		top = vh - controlHeight - edgeMargin
	}
	return top, left
}
