package operations

import (
	"context"

	"github.com/deltalab-io/cusp"
	"github.com/pkg/errors"
)

// serviceConf collects the flag-provided settings shared by every command
// that builds an environment.
type serviceConf struct {
	numWorkers    int
	localQueue    bool
	mongodbURI    string
	dbName        string
	artifactsPath string
}

func newServiceConf(numWorkers int, localQueue bool, mongodbURI, dbName, artifactsPath string) *serviceConf {
	return &serviceConf{
		numWorkers:    numWorkers,
		localQueue:    localQueue,
		mongodbURI:    mongodbURI,
		dbName:        dbName,
		artifactsPath: artifactsPath,
	}
}

func (sc *serviceConf) export() *cusp.Configuration {
	return &cusp.Configuration{
		MongoDBURI:        sc.mongodbURI,
		DatabaseName:      sc.dbName,
		NumWorkers:        sc.numWorkers,
		DisableLocalQueue: !sc.localQueue,
		ArtifactsPath:     sc.artifactsPath,
	}
}

// setup builds a running environment from the collected settings,
// connecting to the database and, when the configuration asks for one,
// starting the local queue. The environment is installed as the global so
// that jobs rebuilt from the queue can find it.
func (sc *serviceConf) setup(ctx context.Context, name string) (cusp.Environment, error) {
	env, err := cusp.NewEnvironment(ctx, name, sc.export())
	if err != nil {
		return nil, errors.Wrap(err, "problem setting up environment")
	}
	cusp.SetEnvironment(env)

	return env, nil
}
