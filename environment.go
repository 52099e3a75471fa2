package cusp

import (
	"context"
	"sync"
	"time"

	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/queue"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CloserFunc tears down one resource owned by the environment.
type CloserFunc func(context.Context) error

// Environment objects provide access to shared configuration and state, in a
// way that you can isolate and test for in units, rest, and operations.
type Environment interface {
	GetConf() *Configuration
	SetConf(*Configuration)

	// Context returns a cancelable child of the environment's base
	// context, for bounding database operations.
	Context() (context.Context, context.CancelFunc)

	GetClient() *mongo.Client
	GetDB() *mongo.Database

	// GetQueue retrieves the application's shared queue, which is cached
	// for easy access from within units or inside of requests or command
	// line operations.
	GetQueue() amboy.Queue

	// GetCache returns the environment's in-memory cache, for values
	// such as calibration thresholds that are expensive to recompute.
	GetCache() EnvironmentCache

	// GetStatsCache returns the usage stats cache registered under the
	// given name.
	GetStatsCache(string) (*StatsCache, error)

	RegisterCloser(string, CloserFunc)
	Close(context.Context) error
}

// NewEnvironment constructs an Environment from the configuration: it
// connects to MongoDB, verifies the connection, and builds and starts the
// local work queue unless the configuration disables it.
func NewEnvironment(ctx context.Context, name string, conf *Configuration) (Environment, error) {
	if conf == nil {
		return nil, errors.New("cannot build an environment with a nil configuration")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	env := &envState{
		name:       name,
		conf:       conf,
		ctx:        ctx,
		cache:      newEnvironmentCache(),
		statsCache: newStatsCacheRegistry(ctx),
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(conf.MongoDBURI).
		SetConnectTimeout(conf.MongoDBDialTimeout).
		SetSocketTimeout(conf.SocketTimeout))
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to db %s", conf.MongoDBURI)
	}

	pingCtx, cancel := context.WithTimeout(ctx, conf.MongoDBDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, errors.Wrapf(err, "could not reach db %s", conf.MongoDBURI)
	}

	env.client = client
	env.RegisterCloser("mongo-client", func(c context.Context) error {
		return errors.WithStack(client.Disconnect(c))
	})

	if !conf.DisableLocalQueue {
		env.queue = queue.NewLocalLimitedSize(conf.NumWorkers, QueueSizeCap)
		grip.Infof("configured local queue with %d workers", conf.NumWorkers)

		if err := env.queue.Start(ctx); err != nil {
			return nil, errors.Wrap(err, "problem starting local queue")
		}
		env.RegisterCloser("local-queue", func(c context.Context) error {
			if !amboy.WaitInterval(c, env.queue, 10*time.Millisecond) {
				grip.Warning(message.Fields{
					"name":    name,
					"message": "local queue did not drain before closing",
					"status":  env.queue.Stats(c),
				})
			}
			return nil
		})
	}

	return env, nil
}

type closerOp struct {
	name   string
	closer CloserFunc
}

type envState struct {
	name       string
	ctx        context.Context
	client     *mongo.Client
	queue      amboy.Queue
	conf       *Configuration
	cache      *envCache
	statsCache map[string]*StatsCache
	closers    []closerOp
	mutex      sync.RWMutex
}

func (c *envState) GetConf() *Configuration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.conf == nil {
		return nil
	}

	// copy the struct
	out := &Configuration{}
	*out = *c.conf

	return out
}

func (c *envState) SetConf(conf *Configuration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.conf = conf
}

func (c *envState) Context() (context.Context, context.CancelFunc) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	base := c.ctx
	if base == nil {
		base = context.Background()
	}

	return context.WithCancel(base)
}

func (c *envState) GetClient() *mongo.Client {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.client
}

func (c *envState) GetDB() *mongo.Database {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.client == nil || c.conf == nil || c.conf.DatabaseName == "" {
		return nil
	}

	return c.client.Database(c.conf.DatabaseName)
}

func (c *envState) GetQueue() amboy.Queue {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.queue
}

func (c *envState) GetCache() EnvironmentCache {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cache == nil {
		c.cache = newEnvironmentCache()
	}

	return c.cache
}

func (c *envState) GetStatsCache(name string) (*StatsCache, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	cache, ok := c.statsCache[name]
	if !ok {
		return nil, errors.Errorf("no stats cache named '%s'", name)
	}

	return cache, nil
}

func (c *envState) RegisterCloser(name string, closer CloserFunc) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closers = append(c.closers, closerOp{name: name, closer: closer})
}

func (c *envState) Close(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	catcher := grip.NewBasicCatcher()
	deadline, _ := ctx.Deadline()

	for _, op := range c.closers {
		startAt := time.Now()
		catcher.Add(op.closer(ctx))

		grip.Info(message.Fields{
			"name":         c.name,
			"message":      "ran closer",
			"closer":       op.name,
			"duration_ms":  time.Since(startAt).Milliseconds(),
			"deadline_sec": time.Until(deadline).Seconds(),
		})
	}

	return catcher.Resolve()
}
