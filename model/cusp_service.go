package model

import (
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/util"
)

const configurationCollection = "configuration"
const cuspServiceConfigID = "cusp-service-config"

// CuspServiceConfig is the singleton service configuration document, loadable
// from yaml and persisted in the configuration collection.
type CuspServiceConfig struct {
	ID string `bson:"_id" json:"id" yaml:"id"`

	// ArtifactsPath overrides the environment's local artifact bucket
	// root when set.
	ArtifactsPath string `bson:"artifacts_path" json:"artifacts_path" yaml:"artifacts_path"`

	Calibration CalibrationDefaults `bson:"calibration" json:"calibration" yaml:"calibration"`

	populated bool
	env       cusp.Environment
}

var (
	cuspServiceConfigIDKey            = bsonutil.MustHaveTag(CuspServiceConfig{}, "ID")
	cuspServiceConfigArtifactsPathKey = bsonutil.MustHaveTag(CuspServiceConfig{}, "ArtifactsPath")
	cuspServiceConfigCalibrationKey   = bsonutil.MustHaveTag(CuspServiceConfig{}, "Calibration")
)

// CalibrationDefaults carries the calibration settings applied when a
// request leaves them unspecified.
type CalibrationDefaults struct {
	Alpha      float64 `bson:"alpha" json:"alpha" yaml:"alpha"`
	Method     string  `bson:"method" json:"method" yaml:"method"`
	Replicates int     `bson:"replicates" json:"replicates" yaml:"replicates"`
	Seed       int64   `bson:"seed" json:"seed" yaml:"seed"`

	// WarmLengths lists series lengths whose decision thresholds the
	// service resolves in the background at startup.
	WarmLengths []int `bson:"warm_lengths" json:"warm_lengths" yaml:"warm_lengths"`
}

var (
	calibrationDefaultsAlphaKey       = bsonutil.MustHaveTag(CalibrationDefaults{}, "Alpha")
	calibrationDefaultsMethodKey      = bsonutil.MustHaveTag(CalibrationDefaults{}, "Method")
	calibrationDefaultsReplicatesKey  = bsonutil.MustHaveTag(CalibrationDefaults{}, "Replicates")
	calibrationDefaultsSeedKey        = bsonutil.MustHaveTag(CalibrationDefaults{}, "Seed")
	calibrationDefaultsWarmLengthsKey = bsonutil.MustHaveTag(CalibrationDefaults{}, "WarmLengths")
)

func (c *CuspServiceConfig) Setup(e cusp.Environment) { c.env = e }
func (c *CuspServiceConfig) IsNil() bool              { return !c.populated }

func (c *CuspServiceConfig) Find() error {
	if c.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	ctx, cancel := c.env.Context()
	defer cancel()

	c.populated = false
	err := c.env.GetDB().Collection(configurationCollection).FindOne(ctx, bson.M{"_id": cuspServiceConfigID}).Decode(c)
	if db.ResultsNotFound(err) {
		return errors.New("could not find application configuration in the database")
	} else if err != nil {
		return errors.Wrap(err, "problem finding service config document")
	}

	c.populated = true
	return nil
}

func (c *CuspServiceConfig) Save() error {
	if !c.populated {
		return errors.New("cannot save a non-populated service configuration")
	}
	if c.env == nil {
		return errors.New("cannot save with a nil environment")
	}
	ctx, cancel := c.env.Context()
	defer cancel()

	c.ID = cuspServiceConfigID

	replaceResult, err := c.env.GetDB().Collection(configurationCollection).ReplaceOne(
		ctx,
		bson.M{"_id": cuspServiceConfigID},
		c,
		options.Replace().SetUpsert(true),
	)
	grip.Debug(message.Fields{
		"collection":    configurationCollection,
		"id":            cuspServiceConfigID,
		"operation":     "save service configuration",
		"replaceResult": replaceResult,
	})

	return errors.Wrap(err, "problem saving application configuration")
}

// LoadCuspServiceConfig reads a service configuration from a yaml file.
func LoadCuspServiceConfig(file string) (*CuspServiceConfig, error) {
	newConfig := &CuspServiceConfig{}

	if err := util.ReadFileYAML(file, newConfig); err != nil {
		return nil, errors.WithStack(err)
	}

	newConfig.populated = true

	return newConfig, nil
}
