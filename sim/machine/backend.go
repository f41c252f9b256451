package machine

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
)

// ErrNoBackend is returned when none of the preferred backends is
// available.
var ErrNoBackend = errors.New("no supported compute backend found")

// SelectBackend walks the preference list and returns the first backend
// registered in sim.Backends.
func SelectBackend(preferences []string, log logrus.FieldLogger) (string, sim.BackendFactory, error) {
	for _, name := range preferences {
		factory, ok := sim.Backends.Lookup(name)
		if !ok {
			log.WithField("backend", name).Debug("Backend not available")
			continue
		}
		log.WithField("backend", name).Info("Using compute backend")
		return name, factory, nil
	}
	return "", nil, fmt.Errorf("%w (tried %v, available %v)", ErrNoBackend, preferences, sim.Backends.Names())
}
