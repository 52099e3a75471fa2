package data

import (
	"context"
	"testing"
	"time"

	"github.com/deltalab-io/cusp"
	"github.com/stretchr/testify/assert"
)

const testDBName = "cusp_test_rest_data"

// newTestEnv builds an environment without a local queue, so connector calls
// are observable without background jobs racing the assertions.
func newTestEnv(t *testing.T) (cusp.Environment, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	conf := &cusp.Configuration{
		MongoDBURI:         "mongodb://localhost:27017",
		DatabaseName:       testDBName,
		MongoDBDialTimeout: time.Second,
		NumWorkers:         2,
		DisableLocalQueue:  true,
		ArtifactsPath:      t.TempDir(),
	}
	env, err := cusp.NewEnvironment(ctx, "cusp.rest.data.test", conf)
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
