package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

type Config struct {
	Database DatabaseConfig
	Detector DetectorConfig
	Camera   CameraConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Web      WebConfig
	Policy   PolicyConfig

	// TrainSchedule is a cron expression for automatic retraining (empty = disabled)
	TrainSchedule string
}

type DatabaseConfig struct {
	Driver       string // "postgres" (default) or "mysql"
	URL          string // PostgreSQL URL or MySQL DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type DetectorConfig struct {
	URL         string  // face detection service, defaults to http://localhost:8000
	MinScore    float64 // detections below this score are dropped
	MinFaceSize int     // minimum face width/height in pixels
}

type CameraConfig struct {
	URL string // MJPEG stream URL of the attendance camera (empty = no server-side camera)
}

type StorageConfig struct {
	DataDir      string
	SamplesDir   string // backup mirror of enrollment samples (one folder per identity)
	UnknownDir   string // crops of unknown faces
	ArtifactPath string // trained classifier artifact
}

type AuthConfig struct {
	JWTKey            string
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS whitelist in addition to localhost
}

// PolicyConfig holds capture and recognition policy. Defaults come from the
// embedded policy.yaml, selected values can be overridden from the environment.
type PolicyConfig struct {
	CaptureTarget       int          `yaml:"capture_target"`
	MinSamples          int          `yaml:"min_samples"`
	SampleSize          int          `yaml:"sample_size"`
	MatchThreshold      float64      `yaml:"match_threshold"`
	UnknownLogThreshold float64      `yaml:"unknown_log_threshold"`
	DefaultDepartment   string       `yaml:"default_department"`
	LBPH                LBPHSettings `yaml:"lbph"`
}

// LBPHSettings configures the local binary pattern histogram classifier.
type LBPHSettings struct {
	Radius    int `yaml:"radius"`
	Neighbors int `yaml:"neighbors"`
	GridX     int `yaml:"grid_x"`
	GridY     int `yaml:"grid_y"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DefaultPolicy returns the policy embedded in the binary.
func DefaultPolicy() PolicyConfig {
	var policy PolicyConfig
	if err := yaml.Unmarshal(policyYAML, &policy); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}
	return policy
}

func Load() *Config {
	policy := DefaultPolicy()
	policy.CaptureTarget = envInt("CAPTURE_TARGET", policy.CaptureTarget)
	policy.MinSamples = envInt("MIN_SAMPLES", policy.MinSamples)
	policy.DefaultDepartment = envString("DEFAULT_DEPARTMENT", policy.DefaultDepartment)

	dataDir := envString("DATA_DIR", "data")

	return &Config{
		Database: DatabaseConfig{
			Driver:       envString("DATABASE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Detector: DetectorConfig{
			URL:         os.Getenv("FACE_DETECTOR_URL"),
			MinScore:    envFloat("FACE_DETECTOR_MIN_SCORE", 0.5),
			MinFaceSize: envInt("FACE_DETECTOR_MIN_SIZE", 30),
		},
		Camera: CameraConfig{
			URL: os.Getenv("CAMERA_URL"),
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			SamplesDir:   envString("SAMPLES_DIR", filepath.Join(dataDir, "StudentImages")),
			UnknownDir:   envString("UNKNOWN_DIR", filepath.Join(dataDir, "UnknownFaces")),
			ArtifactPath: envString("ARTIFACT_PATH", filepath.Join(dataDir, "TrainingModel", "classifier.bin")),
		},
		Auth: AuthConfig{
			JWTKey:            os.Getenv("JWT_KEY"),
			AdminUsername:     envString("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Policy:        policy,
		TrainSchedule: os.Getenv("TRAIN_SCHEDULE"),
	}
}

// AdminEnabled reports whether admin login is configured
func (c *AuthConfig) AdminEnabled() bool {
	return c.JWTKey != "" && c.AdminPasswordHash != ""
}
