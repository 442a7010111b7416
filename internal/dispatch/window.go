package dispatch

import (
	"fmt"
	"time"
	// Ship the zone database so the catalog resolves in scratch containers.
	_ "time/tzdata"

	"go.uber.org/zap"
)

// triggerWindowMinutes bounds how far into the hour a trigger may still fire.
// The external scheduler invokes dispatch several times per hour; rejecting
// anything past the window keeps a late or duplicate trigger from re-sending
// the same hour's notification.
const triggerWindowMinutes = 15

// WindowResolver buckets the fixed zone catalog by current local hour.
type WindowResolver struct {
	catalog []*time.Location
}

// NewWindowResolver loads the catalog. Unresolvable zone names are logged and
// skipped; an empty resulting catalog is a configuration error.
func NewWindowResolver(zones []string, log *zap.Logger) (*WindowResolver, error) {
	var catalog []*time.Location
	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			log.Warn("skipping unresolvable zone catalog entry",
				zap.String("zone", name), zap.Error(err))
			continue
		}
		catalog = append(catalog, loc)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("zone catalog resolved to zero usable zones")
	}
	return &WindowResolver{catalog: catalog}, nil
}

// Resolve returns the catalog zones whose local hour at now equals
// targetHour, or nothing when now is outside the trigger window. Pure
// function of now and the static catalog.
func (r *WindowResolver) Resolve(targetHour int, now time.Time) []string {
	if now.Minute() >= triggerWindowMinutes {
		return nil
	}
	var zones []string
	for _, loc := range r.catalog {
		if now.In(loc).Hour() == targetHour {
			zones = append(zones, loc.String())
		}
	}
	return zones
}
