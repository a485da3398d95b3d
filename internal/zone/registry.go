// Package zone holds the named polygons detections are classified into and
// answers point-membership queries against them.
package zone

import (
	"math"
	"sync"

	"zonewatch/internal/model"
)

// MinVertices is the smallest vertex count a zone polygon may have.
const MinVertices = 3

// epsilon absorbs float noise in the boundary test.
const epsilon = 1e-9

// Registry is an ordered set of zones. Lookups walk zones in registration
// order and report the first one containing the point, so overlapping zones
// resolve to whichever was added first.
//
// Re-adding an existing name replaces its polygon but keeps its original
// position in the order (last writer wins on geometry, not on priority).
type Registry struct {
	mu    sync.RWMutex
	zones []model.Zone
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// AddZone registers a polygon under name, replacing any zone with the same name.
func (r *Registry) AddZone(name string, points []model.Point) error {
	z, err := newZone(name, points)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[name]; ok {
		r.zones[i] = z
		return nil
	}
	r.index[name] = len(r.zones)
	r.zones = append(r.zones, z)
	return nil
}

// Remove deletes the zone called name. It reports whether a zone was removed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[name]
	if !ok {
		return false
	}
	r.zones = append(r.zones[:i], r.zones[i+1:]...)
	r.reindex()
	return true
}

// ZoneForPoint returns the name of the first zone containing p, or nil.
// Points on a zone's boundary are inside it.
func (r *Registry) ZoneForPoint(p model.Point) *string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, z := range r.zones {
		if Contains(z.Points, p) {
			name := z.Name
			return &name
		}
	}
	return nil
}

// Zones returns a copy of the registered zones in registration order.
func (r *Registry) Zones() []model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Zone, len(r.zones))
	for i, z := range r.zones {
		out[i] = copyZone(z)
	}
	return out
}

// Zone returns the zone called name.
func (r *Registry) Zone(name string) (model.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return model.Zone{}, false
	}
	return copyZone(r.zones[i]), true
}

// Len returns the number of registered zones.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}

// replace swaps the registry contents for zones, which must already be valid.
func (r *Registry) replace(zones []model.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.zones = zones
	r.reindex()
}

func (r *Registry) reindex() {
	r.index = make(map[string]int, len(r.zones))
	for i, z := range r.zones {
		r.index[z.Name] = i
	}
}

func newZone(name string, points []model.Point) (model.Zone, error) {
	if name == "" {
		return model.Zone{}, &ConfigurationError{Zone: name, Reason: "name is required"}
	}
	if len(points) < MinVertices {
		return model.Zone{}, &ConfigurationError{
			Zone:   name,
			Reason: "polygon needs at least 3 vertices",
		}
	}
	for _, p := range points {
		if !inUnitRange(p.X) || !inUnitRange(p.Y) {
			return model.Zone{}, &ConfigurationError{
				Zone:   name,
				Reason: "vertex coordinates must be normalized to [0,1]",
			}
		}
	}
	return copyZone(model.Zone{Name: name, Points: points}), nil
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func copyZone(z model.Zone) model.Zone {
	pts := make([]model.Point, len(z.Points))
	copy(pts, z.Points)
	return model.Zone{Name: z.Name, Points: pts}
}

// Contains reports whether p lies inside or on the boundary of the polygon.
// It runs an even-odd ray cast after checking every edge for the point.
func Contains(polygon []model.Point, p model.Point) bool {
	n := len(polygon)
	if n < MinVertices {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if onSegment(a, b, p) {
			return true
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p model.Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > epsilon {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-epsilon && p.X <= math.Max(a.X, b.X)+epsilon &&
		p.Y >= math.Min(a.Y, b.Y)-epsilon && p.Y <= math.Max(a.Y, b.Y)+epsilon
}
