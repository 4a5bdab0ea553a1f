package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvPort            = "PORT"
	EnvAppEnv          = "APP_ENV"
	EnvFlaskEnv        = "FLASK_ENV"
	EnvLogLevel        = "LOG_LEVEL"
	EnvBasePath        = "BASE_PATH"
	EnvModelFile       = "MODEL_FILE"
	EnvEncodersFile    = "ENCODERS_FILE"
	EnvDetectorsFile   = "DETECTORS_FILE"
	EnvTrafficFile     = "TRAFFIC_FILE"
	EnvClusteringFile  = "CLUSTERING_FILE"
	EnvForecastPrefix  = "FORECAST_PREFIX"
	EnvRemoteModelID   = "GDRIVE_RF_MODEL"
	EnvRemoteEncoderID = "GDRIVE_ENCODERS"
	EnvRemoteTrafficID = "GDRIVE_MARSEILLE_DATA"
	EnvRemoteBaseURL   = "REMOTE_BASE_URL"
	EnvDownloadTimeout = "DOWNLOAD_TIMEOUT"
	EnvCityCode        = "CITY_CODE"
	EnvCachePath       = "CACHE_PATH"
	EnvStaticDir       = "STATIC_DIR"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
)

// Configuration defaults
const (
	DefaultPort           = 5000
	DefaultAppEnv         = "development"
	DefaultLogLevel       = "info"
	DefaultBasePath       = "."
	DefaultModelFile      = "traffic_model_time_location.json.gz"
	DefaultEncodersFile   = "model_encoders_revised.json"
	DefaultDetectorsFile  = "detectors_public.csv"
	DefaultTrafficFile    = "marseille_clean.csv"
	DefaultClusteringFile = "clustering_models_comparison.csv"
	DefaultForecastPrefix = "sensor_predictions_"
	DefaultRemoteBaseURL  = "https://drive.google.com/uc?export=download&confirm=1"
	DefaultCityCode       = "marseille"
)

// Occupancy thresholds used when the encoder bundle does not carry its own.
const (
	DefaultThresholdLow  = 0.0364
	DefaultThresholdHigh = 0.0722
)

// Feature constants the classifier was trained against.
const (
	DefaultRoadClass     = "secondary"
	DefaultAvgOccupancy  = 0.05
	DefaultAvgFlowPerHr  = 100
	SensorIntervalSecond = 180
)

// Validation constants
const (
	MinPort = 1
	MaxPort = 65535
)

// Day names indexed by weekday, Monday=0.
var DayNames = [7]string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}
