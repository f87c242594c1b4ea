package control

import (
	"strings"
	"sync"
)

// MemoryPage is a headless Page. It backs the CLI capture command and tests.
type MemoryPage struct {
	mu       sync.Mutex
	url      string
	width    float64
	height   float64
	elements map[string][]string
	controls []*MemoryControl
}

// NewMemoryPage returns an empty page at url with the given viewport.
func NewMemoryPage(url string, width, height float64) *MemoryPage {
	return &MemoryPage{
		url:      url,
		width:    width,
		height:   height,
		elements: make(map[string][]string),
	}
}

// AddElement records a non-image element such as main or h1.
func (p *MemoryPage) AddElement(tag, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tag = strings.ToLower(tag)
	p.elements[tag] = append(p.elements[tag], text)
}

func (p *MemoryPage) URL() string { return p.url }

func (p *MemoryPage) Viewport() (float64, float64) { return p.width, p.height }

func (p *MemoryPage) HasElement(tag string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.elements[strings.ToLower(tag)]
	return ok
}

func (p *MemoryPage) TextsOf(tag string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.elements[strings.ToLower(tag)]...)
}

func (p *MemoryPage) CreateControl(class string) ControlNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	node := &MemoryControl{page: p, class: class}
	p.controls = append(p.controls, node)
	return node
}

func (p *MemoryPage) QueryControls(class string) []ControlNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ControlNode
	for _, node := range p.controls {
		if node.class == class {
			out = append(out, node)
		}
	}
	return out
}

// Controls returns the control nodes currently attached to the page.
func (p *MemoryPage) Controls() []*MemoryControl {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*MemoryControl(nil), p.controls...)
}

// InjectControl attaches a stray control node, as left behind by an earlier
// script instance.
func (p *MemoryPage) InjectControl() *MemoryControl {
	return p.CreateControl(ControlClass).(*MemoryControl)
}

func (p *MemoryPage) detach(node *MemoryControl) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, candidate := range p.controls {
		if candidate == node {
			p.controls = append(p.controls[:i], p.controls[i+1:]...)
			return
		}
	}
}

// MemoryControl is a control node on a MemoryPage. It is also an Element so
// it can be passed as a related target.
type MemoryControl struct {
	page  *MemoryPage
	class string

	label    string
	color    string
	disabled bool
	top      float64
	left     float64
}

func (c *MemoryControl) SetLabel(text string) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.label = text
}

func (c *MemoryControl) SetBackground(color string) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.color = color
}

func (c *MemoryControl) SetDisabled(disabled bool) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.disabled = disabled
}

func (c *MemoryControl) MoveTo(top, left float64) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.top, c.left = top, left
}

func (c *MemoryControl) Remove() {
	c.page.detach(c)
}

// Label returns the current text.
func (c *MemoryControl) Label() string {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	return c.label
}

// Background returns the current background colour.
func (c *MemoryControl) Background() string {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	return c.color
}

// Disabled reports whether the control is disabled.
func (c *MemoryControl) Disabled() bool {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	return c.disabled
}

// Position returns the control's top and left coordinates.
func (c *MemoryControl) Position() (float64, float64) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	return c.top, c.left
}

func (c *MemoryControl) Tag() string { return "button" }

func (c *MemoryControl) BoundingRect() Rect {
	top, left := c.Position()
	return Rect{Top: top, Left: left, Bottom: top + controlHeight, Right: left + controlWidth}
}

func (c *MemoryControl) Attr(string) string { return "" }

func (c *MemoryControl) CurrentSrc() string { return "" }

func (c *MemoryControl) Within(class string) bool { return c.class == class }

// MemoryImage is an img element on a MemoryPage.
type MemoryImage struct {
	mu         sync.Mutex
	rect       Rect
	attrs      map[string]string
	currentSrc string
}

// NewMemoryImage returns an image with the given box and src.
func NewMemoryImage(rect Rect, src string) *MemoryImage {
	img := &MemoryImage{rect: rect, attrs: make(map[string]string)}
	if src != "" {
		img.attrs["src"] = src
	}
	return img
}

// SetAttr sets or clears an attribute.
func (i *MemoryImage) SetAttr(name, value string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if value == "" {
		delete(i.attrs, name)
		return
	}
	i.attrs[name] = value
}

// SetCurrentSrc sets the resolved responsive source.
func (i *MemoryImage) SetCurrentSrc(value string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.currentSrc = value
}

func (i *MemoryImage) Tag() string { return "img" }

func (i *MemoryImage) BoundingRect() Rect {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rect
}

func (i *MemoryImage) Attr(name string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attrs[name]
}

func (i *MemoryImage) CurrentSrc() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.currentSrc
}

func (i *MemoryImage) Within(string) bool { return false }
