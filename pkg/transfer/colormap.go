package transfer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ColorMap classifies a scalar into an RGBA colour using one Function per
// channel. All four channels share the same node positions because every
// node is added to each of them.
type ColorMap struct {
	Red, Green, Blue, Opacity Function
}

// AddNode adds a control point to every channel. rgba is (r, g, b, alpha).
func (c *ColorMap) AddNode(position float32, rgba mgl32.Vec4) {
	for i, ch := range c.channels() {
		ch.AddNode(position, rgba[i])
	}
}

// Canonicalize sorts and cleans each channel. Channels are cleaned
// independently, so a flat opacity run may lose nodes the colour keeps.
func (c *ColorMap) Canonicalize() {
	for _, ch := range c.channels() {
		ch.Canonicalize()
	}
}

// Evaluate returns the classified colour at position
func (c *ColorMap) Evaluate(position float32) mgl32.Vec4 {
	return mgl32.Vec4{
		c.Red.Evaluate(position),
		c.Green.Evaluate(position),
		c.Blue.Evaluate(position),
		c.Opacity.Evaluate(position),
	}
}

// Count returns the node count of the opacity channel
func (c *ColorMap) Count() int { return c.Opacity.Count() }

// Reset removes all nodes from every channel
func (c *ColorMap) Reset() {
	for _, ch := range c.channels() {
		ch.Reset()
	}
}

func (c *ColorMap) channels() [4]*Function {
	return [4]*Function{&c.Red, &c.Green, &c.Blue, &c.Opacity}
}
