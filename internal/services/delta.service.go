package services

// DeltaDeriver turns a cumulative counter into interval deltas.
// A reading below the previous one (counter reset after a host restart)
// yields 0 rather than a negative delta.
type DeltaDeriver struct {
	lastRaw float64
}

// NewDeltaDeriver returns a deriver whose previous reading is seed
func NewDeltaDeriver(seed float64) *DeltaDeriver {
	return &DeltaDeriver{lastRaw: seed}
}

// Derive returns the delta against the previous reading and the new raw
// value, then advances to it
func (d *DeltaDeriver) Derive(current float64) (delta, newRaw float64) {
	delta = current - d.lastRaw
	if delta < 0 {
		delta = 0
	}
	d.lastRaw = current
	return delta, current
}

// Seed resets the previous reading, used after restoring persisted history
func (d *DeltaDeriver) Seed(raw float64) {
	d.lastRaw = raw
}

// LastRaw returns the previous reading
func (d *DeltaDeriver) LastRaw() float64 {
	return d.lastRaw
}
