package data

import (
	"github.com/deltalab-io/cusp"
	dbModel "github.com/deltalab-io/cusp/model"
)

// DBConnector is a struct that implements all of the methods which connect
// to the service layer backed by the database. These methods abstract the
// link between the service and the API layers, allowing for changes in the
// service architecture without forcing changes to the API.
type DBConnector struct {
	env cusp.Environment
}

func CreateDBConnector(env cusp.Environment) Connector {
	return &DBConnector{
		env: env,
	}
}

// MockConnector is an in-memory implementation of the same methods for
// testing the API layer without a database.
type MockConnector struct {
	CachedSeries       map[string]dbModel.PerformanceSeries
	CachedAnalyses     map[string][]dbModel.AnalysisResult
	CachedCalibrations map[string]dbModel.CalibrationRecord

	env cusp.Environment
}

func CreateMockConnector(env cusp.Environment) *MockConnector {
	return &MockConnector{
		CachedSeries:       map[string]dbModel.PerformanceSeries{},
		CachedAnalyses:     map[string][]dbModel.AnalysisResult{},
		CachedCalibrations: map[string]dbModel.CalibrationRecord{},
		env:                env,
	}
}
