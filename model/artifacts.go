package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/evergreen-ci/pail"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"

	"github.com/deltalab-io/cusp"
)

// AnalysisArtifact is the document archived for each completed analysis: the
// raw series alongside the result computed from it.
type AnalysisArtifact struct {
	Series *PerformanceSeries `json:"series"`
	Result *AnalysisResult    `json:"result"`
}

// ArtifactBucket opens the environment's local artifact bucket under the
// given prefix, creating the root directory when needed.
func ArtifactBucket(ctx context.Context, env cusp.Environment, prefix string) (pail.Bucket, error) {
	conf := env.GetConf()
	if conf == nil || conf.ArtifactsPath == "" {
		return nil, errors.New("environment has no artifacts path configured")
	}

	if err := os.MkdirAll(conf.ArtifactsPath, 0755); err != nil {
		return nil, errors.Wrapf(err, "problem creating artifact path %s", conf.ArtifactsPath)
	}

	bucket, err := pail.NewLocalBucket(pail.LocalOptions{
		Path:   conf.ArtifactsPath,
		Prefix: prefix,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return bucket, nil
}

// ArchiveAnalysis writes the series and its analysis result to the artifact
// bucket as a single timestamped json document.
func ArchiveAnalysis(ctx context.Context, env cusp.Environment, series *PerformanceSeries, result *AnalysisResult) error {
	if series == nil || result == nil {
		return errors.New("cannot archive a nil series or result")
	}

	bucket, err := ArtifactBucket(ctx, env, series.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	data, err := json.Marshal(&AnalysisArtifact{Series: series, Result: result})
	if err != nil {
		return errors.Wrap(err, "problem marshalling analysis artifact")
	}

	key := fmt.Sprintf("%s-%s.json", result.CreatedAt.UTC().Format(cusp.ShortDateFormat), result.ID)
	if err := bucket.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "problem archiving analysis %s", result.ID)
	}

	grip.Debug(message.Fields{
		"prefix": series.ID,
		"key":    key,
		"op":     "archived analysis artifact",
	})

	return nil
}
