package control

// ControlClass is the class name carried by every control node.
const ControlClass = "cherthat-save-button"

// Rect is a viewport-relative bounding box in CSS pixels.
type Rect struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Element is a node the pointer can enter or leave.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string
	// BoundingRect returns the element's viewport-relative box.
	BoundingRect() Rect
	// Attr returns an attribute value, or "" when absent. Used for src,
	// data-src, and data-original.
	Attr(name string) string
	// CurrentSrc returns the resolved responsive image source.
	CurrentSrc() string
	// Within reports whether the element or one of its ancestors carries
	// the class name.
	Within(class string) bool
}

// ControlNode is a rendered control.
type ControlNode interface {
	SetLabel(text string)
	SetBackground(color string)
	SetDisabled(disabled bool)
	MoveTo(top, left float64)
	Remove()
}

// Page is the document hosting the manager.
type Page interface {
	// URL returns the page location.
	URL() string
	// Viewport returns the viewport width and height.
	Viewport() (width, height float64)
	// HasElement reports whether an element with the tag is present.
	HasElement(tag string) bool
	// TextsOf returns the text content of every element with the tag.
	TextsOf(tag string) []string
	// CreateControl appends a new control node carrying class to the body.
	CreateControl(class string) ControlNode
	// QueryControls returns every node in the document carrying class.
	QueryControls(class string) []ControlNode
}
