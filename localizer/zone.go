package localizer

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Zone is a coarse classification of where a point lies.
type Zone int

// Known zones.
const (
	ZoneUnknown Zone = iota
	ZoneAir
	ZoneGround
	ZoneWater
)

func (z Zone) String() string {
	switch z {
	case ZoneUnknown:
		return "unknown"
	case ZoneAir:
		return "air"
	case ZoneGround:
		return "ground"
	case ZoneWater:
		return "water"
	default:
		return fmt.Sprintf("zone(%d)", int(z))
	}
}

// A ZoneClassifier maps a point to the zone containing it.
type ZoneClassifier interface {
	Classify(p r3.Vector) Zone
}

// ConstantZoneClassifier puts every point in the same zone.
type ConstantZoneClassifier struct {
	Zone Zone
}

// Classify returns the configured zone.
func (c ConstantZoneClassifier) Classify(r3.Vector) Zone {
	return c.Zone
}

// ZoneClassifierFunc adapts a function to a ZoneClassifier.
type ZoneClassifierFunc func(p r3.Vector) Zone

// Classify calls f(p).
func (f ZoneClassifierFunc) Classify(p r3.Vector) Zone {
	return f(p)
}
