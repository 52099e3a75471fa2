package operations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceConfiguration(t *testing.T) {
	for name, test := range map[string]func(t *testing.T){
		"ExportTranslatesSettings": func(t *testing.T) {
			sc := newServiceConf(4, true, "mongodb://localhost:27017", "cusp_test", "artifacts")
			conf := sc.export()
			assert.Equal(t, "mongodb://localhost:27017", conf.MongoDBURI)
			assert.Equal(t, "cusp_test", conf.DatabaseName)
			assert.Equal(t, 4, conf.NumWorkers)
			assert.Equal(t, "artifacts", conf.ArtifactsPath)
			assert.False(t, conf.DisableLocalQueue)
		},
		"ExportDisablesQueueWithoutLocalQueue": func(t *testing.T) {
			sc := newServiceConf(2, false, "mongodb://localhost:27017", "cusp_test", "")
			assert.True(t, sc.export().DisableLocalQueue)
		},
		"ValidationAppliesDefaults": func(t *testing.T) {
			conf := newServiceConf(0, true, "mongodb://localhost:27017", "", "").export()
			require.NoError(t, conf.Validate())
			assert.Equal(t, 2, conf.NumWorkers)
			assert.Equal(t, "cusp", conf.DatabaseName)
			assert.NotZero(t, conf.ArtifactsPath)
		},
		"ValidationRequiresMongoURI": func(t *testing.T) {
			conf := newServiceConf(2, true, "", "cusp_test", "").export()
			err := conf.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "mongodb")
		},
	} {
		t.Run(name, test)
	}
}

func TestLoadSeriesJSON(t *testing.T) {
	t.Run("ArrayOfNumbers", func(t *testing.T) {
		path := writeTempFile(t, "series.json", "[1, 2, 3.5]")
		values, err := loadSeriesJSON(path)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3.5}, values)
	})
	t.Run("NotAnArray", func(t *testing.T) {
		path := writeTempFile(t, "series.json", `{"values": [1]}`)
		_, err := loadSeriesJSON(path)
		assert.Error(t, err)
	})
	t.Run("EmptyArray", func(t *testing.T) {
		path := writeTempFile(t, "series.json", "[]")
		_, err := loadSeriesJSON(path)
		assert.Error(t, err)
	})
	t.Run("MissingFile", func(t *testing.T) {
		_, err := loadSeriesJSON("DNE.json")
		assert.Error(t, err)
	})
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}
