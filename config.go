package cusp

import (
	"errors"
	"time"

	"github.com/mongodb/grip"
)

const (
	defaultDatabaseName  = "cusp"
	defaultSocketTimeout = 2 * time.Minute
	defaultDialTimeout   = 2 * time.Second
	defaultNumWorkers    = 2
	defaultArtifactsPath = "cusp-artifacts"
)

// Configuration defines the application-level settings shared by the
// service, the worker, and the command line entry points.
type Configuration struct {
	MongoDBURI         string        `yaml:"mongodb_uri"`
	DatabaseName       string        `yaml:"database_name"`
	MongoDBDialTimeout time.Duration `yaml:"mongodb_dial_timeout"`
	SocketTimeout      time.Duration `yaml:"socket_timeout"`
	NumWorkers         int           `yaml:"num_workers"`
	DisableLocalQueue  bool          `yaml:"disable_local_queue"`

	// ArtifactsPath is the root of the local pail bucket that archives
	// raw series and detection results.
	ArtifactsPath string `yaml:"artifacts_path"`
}

// Validate checks required settings and applies defaults to the rest.
func (c *Configuration) Validate() error {
	catcher := grip.NewBasicCatcher()

	if c.MongoDBURI == "" {
		catcher.Add(errors.New("must specify a mongodb url"))
	}
	if c.NumWorkers < 1 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.DatabaseName == "" {
		c.DatabaseName = defaultDatabaseName
	}
	if c.MongoDBDialTimeout <= 0 {
		c.MongoDBDialTimeout = defaultDialTimeout
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = defaultSocketTimeout
	}
	if c.ArtifactsPath == "" {
		c.ArtifactsPath = defaultArtifactsPath
	}

	return catcher.Resolve()
}
