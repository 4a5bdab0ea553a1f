// Package traffic answers the prediction service's queries from an immutable
// State loaded once at startup. Every artifact and table in the State is
// optional; queries that need an absent table return ErrDataUnavailable and
// predictions degrade to the time-of-day pattern.
package traffic

import (
	"context"
	"path/filepath"
	"time"

	"traffic-predictor/internal/artifact"
	"traffic-predictor/internal/cfg"
	"traffic-predictor/internal/ml"
	"traffic-predictor/internal/refdata"

	"github.com/rs/zerolog/log"
)

// State is everything loaded at startup. It is never mutated afterwards, so
// it is shared by concurrent requests without locking.
type State struct {
	Forest       *ml.Forest
	Encoders     *ml.EncoderBundle
	Sensors      []refdata.Sensor
	History      *refdata.History
	Forecasts    []refdata.ForecastRow
	ForecastFile string
	Clustering   []refdata.ClusteringRun
	LoadedAt     time.Time
}

// HistoryCache stores aggregated observation tables by source fingerprint.
type HistoryCache interface {
	GetHistory(fingerprint string) (*refdata.History, bool, error)
	PutHistory(fingerprint string, h *refdata.History) error
}

// ArtifactRecorder is told which artifacts ended up loaded.
type ArtifactRecorder interface {
	SetArtifactLoaded(name string, loaded bool)
}

// Deps are the optional collaborators of Load. Nil fields are skipped.
type Deps struct {
	Resolver *artifact.Resolver
	Cache    HistoryCache
	Recorder ArtifactRecorder
}

// Load builds the State. It never fails: anything that cannot be fetched or
// parsed is logged and left absent.
func Load(ctx context.Context, s *cfg.Settings, deps Deps) *State {
	st := &State{LoadedAt: time.Now()}

	modelPath := s.Resolve(s.ModelFile)
	if deps.Resolver.Ensure(ctx, modelPath, s.RemoteModelID) {
		forest, err := ml.LoadForest(modelPath)
		if err != nil {
			log.Warn().Err(err).Str("path", modelPath).Msg("Classifier not loaded, using time-of-day pattern")
		} else {
			st.Forest = forest
			log.Info().
				Str("path", modelPath).
				Int("trees", len(forest.Estimators)).
				Int("classes", forest.NClasses).
				Msg("Classifier loaded")
		}
	} else {
		log.Warn().Str("path", modelPath).Msg("Classifier file not found, using time-of-day pattern")
	}

	encodersPath := s.Resolve(s.EncodersFile)
	if deps.Resolver.Ensure(ctx, encodersPath, s.RemoteEncodersID) {
		bundle, err := ml.LoadEncoders(encodersPath)
		if err != nil {
			log.Warn().Err(err).Str("path", encodersPath).Msg("Encoders not loaded")
		} else {
			st.Encoders = bundle
			log.Info().
				Str("path", encodersPath).
				Int("feature_columns", len(bundle.FeatureColumns)).
				Msg("Encoders loaded")
		}
	}

	t := st.Encoders.Thresholds()
	log.Info().Float64("low", t.Low).Float64("high", t.High).Msg("Occupancy thresholds")

	detectorsPath := s.Resolve(s.DetectorsFile)
	if sensors, err := refdata.LoadSensors(detectorsPath, s.CityCode); err != nil {
		log.Warn().Err(err).Str("path", detectorsPath).Msg("Detector data not loaded")
	} else {
		st.Sensors = sensors
		log.Info().Int("sensors", len(sensors)).Str("city", s.CityCode).Msg("Detectors loaded")
	}

	trafficPath := s.Resolve(s.TrafficFile)
	if deps.Resolver.Ensure(ctx, trafficPath, s.RemoteTrafficID) {
		if h, err := loadHistory(trafficPath, deps.Cache); err != nil {
			log.Warn().Err(err).Str("path", trafficPath).Msg("Traffic history not loaded")
		} else {
			st.History = h
		}
	}

	if name, err := refdata.LatestForecastFile(s.BasePath, s.ForecastPrefix); err != nil {
		log.Warn().Err(err).Msg("Forecast directory not readable")
	} else if name != "" {
		path := filepath.Join(s.BasePath, name)
		if rows, err := refdata.LoadForecasts(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Forecasts not loaded")
		} else {
			st.Forecasts = rows
			st.ForecastFile = name
			log.Info().Int("sensors", len(rows)).Str("file", name).Msg("Forecasts loaded")
		}
	}

	clusteringPath := s.Resolve(s.ClusteringFile)
	if runs, err := refdata.LoadClusteringRuns(clusteringPath); err != nil {
		log.Warn().Err(err).Str("path", clusteringPath).Msg("Clustering comparison not loaded")
	} else {
		st.Clustering = runs
		log.Info().Int("runs", len(runs)).Msg("Clustering comparison loaded")
	}

	if deps.Recorder != nil {
		st.record(deps.Recorder)
	}
	return st
}

func (st *State) record(r ArtifactRecorder) {
	r.SetArtifactLoaded("model", st.Forest != nil)
	r.SetArtifactLoaded("encoders", st.Encoders != nil)
	r.SetArtifactLoaded("detectors", st.Sensors != nil)
	r.SetArtifactLoaded("history", st.History != nil)
	r.SetArtifactLoaded("forecasts", st.Forecasts != nil)
	r.SetArtifactLoaded("clustering", st.Clustering != nil)
}

// loadHistory aggregates the observation file, reusing a cached aggregate when
// the file has not changed.
func loadHistory(path string, cache HistoryCache) (*refdata.History, error) {
	fp, err := refdata.Fingerprint(path)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		h, ok, err := cache.GetHistory(fp)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("History cache read failed")
		case ok:
			log.Info().Str("fingerprint", fp).Int("cells", len(h.Averages)).Msg("Traffic history loaded from cache")
			return h, nil
		}
	}

	start := time.Now()
	h, err := refdata.LoadHistory(path)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("records", h.Records).
		Int("cells", len(h.Averages)).
		Int("sensors", len(h.Stats)).
		Dur("took", time.Since(start)).
		Msg("Traffic history aggregated")

	if cache != nil {
		if err := cache.PutHistory(fp, h); err != nil {
			log.Warn().Err(err).Msg("History cache write failed")
		}
	}
	return h, nil
}
