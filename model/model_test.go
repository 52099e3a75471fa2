package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltalab-io/cusp"
)

const testDBName = "cusp_model_test"

type commonModel interface {
	Setup(e cusp.Environment)
	IsNil() bool
	Find() error
}

type commonModelFactory func() commonModel

func TestModelInterface(t *testing.T) {
	models := []commonModelFactory{
		func() commonModel { return &AnalysisResult{} },
		func() commonModel { return &PerformanceSeries{} },
		func() commonModel { return &CalibrationRecord{} },
		func() commonModel { return &CuspServiceConfig{} },
	}

	for _, factory := range models {
		m := factory()
		assert.True(t, m.IsNil())

		m.Setup(nil)
		err := m.Find()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil environment")
	}
}

// newTestEnv builds an environment against a local mongod, skipping the test
// when none is reachable. The returned cleanup drops the test database.
func newTestEnv(t *testing.T) (cusp.Environment, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	conf := &cusp.Configuration{
		MongoDBURI:         "mongodb://localhost:27017",
		DatabaseName:       testDBName,
		MongoDBDialTimeout: time.Second,
		DisableLocalQueue:  true,
	}
	env, err := cusp.NewEnvironment(ctx, "cusp.model.test", conf)
	if err != nil {
		cancel()
		t.Skipf("test requires a local mongodb: %s", err)
	}

	cleanup := func() {
		opCtx, opCancel := env.Context()
		defer opCancel()

		assert.NoError(t, env.GetDB().Drop(opCtx))
		assert.NoError(t, env.Close(opCtx))
		cancel()
	}

	return env, cleanup
}
