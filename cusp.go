/*
Package cusp holds a number of application level constants and shared
resources for the cusp changepoint detection service.
*/
package cusp

import (
	"sync"
)

const (
	ServiceName     = "cusp"
	ShortDateFormat = "2006-01-02T15:04"

	// QueueSizeCap bounds the number of pending jobs in the local amboy
	// queue.
	QueueSizeCap = 1024
)

// Names of the usage stats caches maintained by the environment.
const (
	StatsCacheDetections   = "detections"
	StatsCacheCalibrations = "calibrations"
)

// BuildRevision stores the commit in the git repository at build time and is
// specified with -ldflags at build time.
var BuildRevision = ""

var (
	globalEnv     Environment
	globalEnvLock sync.RWMutex
)

func init() { resetEnv() }

func resetEnv() { globalEnv = &envState{name: "global", conf: &Configuration{}} }

// GetEnvironment returns the global application environment.
func GetEnvironment() Environment {
	globalEnvLock.RLock()
	defer globalEnvLock.RUnlock()

	return globalEnv
}

// SetEnvironment installs the global application environment, as built by
// NewEnvironment.
func SetEnvironment(env Environment) {
	globalEnvLock.Lock()
	defer globalEnvLock.Unlock()

	globalEnv = env
}
