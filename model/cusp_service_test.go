package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCuspServiceConfig(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.yaml")
		data := []byte(`
artifacts_path: /srv/cusp/artifacts
calibration:
  alpha: 0.01
  method: montecarlo
  replicates: 2000
  seed: 42
`)
		require.NoError(t, os.WriteFile(path, data, 0644))

		conf, err := LoadCuspServiceConfig(path)
		require.NoError(t, err)
		assert.False(t, conf.IsNil())
		assert.Equal(t, "/srv/cusp/artifacts", conf.ArtifactsPath)
		assert.Equal(t, 0.01, conf.Calibration.Alpha)
		assert.Equal(t, "montecarlo", conf.Calibration.Method)
		assert.Equal(t, 2000, conf.Calibration.Replicates)
		assert.Equal(t, int64(42), conf.Calibration.Seed)
	})
	t.Run("MissingFile", func(t *testing.T) {
		conf, err := LoadCuspServiceConfig(filepath.Join(t.TempDir(), "DNE.yaml"))
		assert.Error(t, err)
		assert.Nil(t, conf)
	})
	t.Run("MalformedYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.yaml")
		require.NoError(t, os.WriteFile(path, []byte("calibration: ["), 0644))

		conf, err := LoadCuspServiceConfig(path)
		assert.Error(t, err)
		assert.Nil(t, conf)
	})
}

func TestCuspServiceConfigSaveAndFind(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	conf := &CuspServiceConfig{
		ArtifactsPath: "/srv/cusp/artifacts",
		Calibration: CalibrationDefaults{
			Alpha:      0.05,
			Method:     "asymptotic",
			Replicates: 1000,
		},
		populated: true,
	}
	conf.Setup(env)
	require.NoError(t, conf.Save())

	t.Run("FindRoundTrip", func(t *testing.T) {
		found := &CuspServiceConfig{}
		found.Setup(env)
		require.NoError(t, found.Find())

		assert.False(t, found.IsNil())
		assert.Equal(t, "/srv/cusp/artifacts", found.ArtifactsPath)
		assert.Equal(t, 0.05, found.Calibration.Alpha)
	})
	t.Run("SaveIsUpsert", func(t *testing.T) {
		conf.Calibration.Alpha = 0.01
		require.NoError(t, conf.Save())

		found := &CuspServiceConfig{}
		found.Setup(env)
		require.NoError(t, found.Find())
		assert.Equal(t, 0.01, found.Calibration.Alpha)
	})
	t.Run("SaveUnpopulatedFails", func(t *testing.T) {
		empty := &CuspServiceConfig{}
		empty.Setup(env)
		assert.Error(t, empty.Save())
	})
}
