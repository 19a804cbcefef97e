package sim

// BufferMarker selects which region is the read source for the next step.
// The other region is the write target.
type BufferMarker uint8

const (
	Primary BufferMarker = iota
	Secondary
)

// Flip returns the other marker.
func (m BufferMarker) Flip() BufferMarker {
	return m ^ 1
}

// Other is an alias of Flip that reads better at binding sites.
func (m BufferMarker) Other() BufferMarker {
	return m.Flip()
}

// Index returns 0 for Primary and 1 for Secondary.
func (m BufferMarker) Index() int {
	return int(m & 1)
}

func (m BufferMarker) String() string {
	if m == Secondary {
		return "secondary"
	}
	return "primary"
}
