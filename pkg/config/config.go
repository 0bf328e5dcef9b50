// Package config holds every tunable value the identity toolchain reads
// at startup: the scoring predictor's shared constants, mean-shift
// clustering's block and pass sizing, the training pipeline's mutation
// and feature-selection knobs, and the REST server's network
// settings. Defaults mirror Parameters.cpp's static initializers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full set of configuration groups the toolchain needs.
type Config struct {
	Server   ServerConfig
	REST     RESTConfig
	Scoring  ScoringConfig
	Cluster  ClusterConfig
	Training TrainingConfig
	Model    ModelConfig
}

// ServerConfig holds general server configuration.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 50051)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
}

// RESTConfig holds the REST API's network, auth, and rate-limit
// settings, layered on top of ServerConfig's host/port.
type RESTConfig struct {
	Enabled bool // whether cmd/server starts the REST listener at all
	Host    string
	Port    int

	CORSEnabled bool
	CORSOrigins []string

	AuthEnabled bool
	JWTSecret   string
	PublicPaths []string // paths that skip auth regardless (health, docs)
	AdminPaths  []string // paths that require the "admin" role

	RateLimitEnabled bool
	RateLimitPerSec  float64
	RateLimitBurst   int
	RateLimitPerIP   bool
	RateLimitPerUser bool
	RateLimitGlobal  bool
}

// Address returns the REST listener's address (host:port).
func (c *RESTConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ScoringConfig holds the predictor's shared constants: the k-mer width
// and alphabet it was trained with, the active identity threshold, and
// the fast-path switches that let most non-matching pairs skip the
// full statistic bank.
type ScoringConfig struct {
	K             int     // k-mer width (default: 2)
	AlphaSize     int     // alphabet size, 4 for DNA (default: 4)
	Threshold     float64 // minimum identity a pair must reach to count as similar
	ErrorMargin   float64 // predictor's absolute error bound, read from the model file
	CanSkip       bool    // reject pairs whose length ratio can't reach Threshold
	FastExactMode bool    // score identical k-mer histograms as 1.0, skip the model otherwise
	WorkerNum     int     // worker pool size for all-vs-all / all-vs-many scoring
}

// ClusterConfig holds mean-shift clustering's block sizing and pass
// count, mirroring Parameters.cpp's MS_* constants.
type ClusterConfig struct {
	BlockSize     int     // sequences loaded per in-memory clustering block (default: 25000)
	VBlockSize    int     // sequences loaded per streaming refinement/assignment block (default: 100000)
	PassNum       int     // streaming refinement passes for MeanShiftLarge (default: 10)
	MaxIterations int     // shift/merge iterations per block before forcing convergence (default: 100)
	BandwidthLow  float64 // threshold at or below which low-identity merge ordering applies (default: 0.7)
	CanAssignAll  bool    // classify every point as Member/Extended/Outside rather than spawning singletons
	CanRelax      bool    // allow Extended membership within the predictor's error margin
	CanEvaluate   bool    // compute the second-best score needed by cluster quality metrics
	WorkerNum     int     // worker pool size for shift/merge/assign
}

// TrainingConfig holds the trainer's mutation and feature-selection
// knobs, mirroring Parameters.cpp's mutation/training constants.
type TrainingConfig struct {
	MinID           float64 // lowest identity a mutated pair may land at during synthetic data generation
	MutationsPerTemp int    // mutated copies generated per reference (template) sequence
	MinBlockSize    int     // smallest contiguous block a block-mutation operation may touch
	MaxBlockSize    int     // largest contiguous block a block-mutation operation may touch
	MinFeatNum      int     // fewest features best-first selection may keep
	MaxFeatNum      int     // most features best-first selection may keep
	Patience        int     // non-improving expansions best-first selection tolerates past MinFeatNum
	KRelax          int     // subtracted from the k-mer order estimated from the mean sequence length
}

// ModelConfig points at the trained model file the scoring and
// clustering commands load at startup.
type ModelConfig struct {
	Path string
}

// Default returns the toolchain's built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		REST: RESTConfig{
			Enabled:          true,
			Host:             "0.0.0.0",
			Port:             8080,
			CORSEnabled:      true,
			CORSOrigins:      []string{"*"},
			AuthEnabled:      false,
			PublicPaths:      []string{"/v1/health", "/docs"},
			AdminPaths:       []string{"/v1/train"},
			RateLimitEnabled: true,
			RateLimitPerSec:  100,
			RateLimitBurst:   200,
			RateLimitPerIP:   true,
		},
		Scoring: ScoringConfig{
			K:           2,
			AlphaSize:   4,
			Threshold:   0.8,
			ErrorMargin: 0.0,
			CanSkip:     true,
			WorkerNum:   4,
		},
		Cluster: ClusterConfig{
			BlockSize:     25000,
			VBlockSize:    100000,
			PassNum:       10,
			MaxIterations: 100,
			BandwidthLow:  0.7,
			CanAssignAll:  true,
			CanRelax:      true,
			WorkerNum:     4,
		},
		Training: TrainingConfig{
			MinID:            0.0,
			MutationsPerTemp: 10,
			MinBlockSize:     2,
			MaxBlockSize:     5,
			MinFeatNum:       3,
			MaxFeatNum:       5,
			Patience:         5,
			KRelax:           1,
		},
		Model: ModelConfig{
			Path: "./identity.model",
		},
	}
}

// LoadFromEnv starts from Default and overrides any value named by an
// IDENTITY_* environment variable.
func LoadFromEnv() *Config {
	cfg := Default()

	if host := os.Getenv("IDENTITY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("IDENTITY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("IDENTITY_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("IDENTITY_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("IDENTITY_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("IDENTITY_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("IDENTITY_TLS_KEY")
	}

	if restEnabled := os.Getenv("IDENTITY_REST_ENABLED"); restEnabled != "" {
		cfg.REST.Enabled = restEnabled == "true"
	}
	if restHost := os.Getenv("IDENTITY_REST_HOST"); restHost != "" {
		cfg.REST.Host = restHost
	}
	if restPort := os.Getenv("IDENTITY_REST_PORT"); restPort != "" {
		if p, err := strconv.Atoi(restPort); err == nil {
			cfg.REST.Port = p
		}
	}
	if authEnabled := os.Getenv("IDENTITY_AUTH_ENABLED"); authEnabled == "true" {
		cfg.REST.AuthEnabled = true
		cfg.REST.JWTSecret = os.Getenv("IDENTITY_JWT_SECRET")
	}
	if rateLimit := os.Getenv("IDENTITY_RATE_LIMIT_PER_SEC"); rateLimit != "" {
		if r, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			cfg.REST.RateLimitPerSec = r
		}
	}

	if k := os.Getenv("IDENTITY_K"); k != "" {
		if kVal, err := strconv.Atoi(k); err == nil {
			cfg.Scoring.K = kVal
		}
	}
	if threshold := os.Getenv("IDENTITY_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.Scoring.Threshold = t
		}
	}
	if fastExact := os.Getenv("IDENTITY_FAST_EXACT"); fastExact == "true" {
		cfg.Scoring.FastExactMode = true
	}
	if workers := os.Getenv("IDENTITY_SCORING_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			cfg.Scoring.WorkerNum = w
		}
	}

	if blockSize := os.Getenv("IDENTITY_CLUSTER_BLOCK_SIZE"); blockSize != "" {
		if b, err := strconv.Atoi(blockSize); err == nil {
			cfg.Cluster.BlockSize = b
		}
	}
	if vBlockSize := os.Getenv("IDENTITY_CLUSTER_V_BLOCK_SIZE"); vBlockSize != "" {
		if v, err := strconv.Atoi(vBlockSize); err == nil {
			cfg.Cluster.VBlockSize = v
		}
	}
	if passNum := os.Getenv("IDENTITY_CLUSTER_PASS_NUM"); passNum != "" {
		if p, err := strconv.Atoi(passNum); err == nil {
			cfg.Cluster.PassNum = p
		}
	}
	if workers := os.Getenv("IDENTITY_CLUSTER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			cfg.Cluster.WorkerNum = w
		}
	}

	if modelPath := os.Getenv("IDENTITY_MODEL_PATH"); modelPath != "" {
		cfg.Model.Path = modelPath
	}

	return cfg
}

// Validate reports the first configuration error found, or nil.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	if c.REST.Enabled {
		if c.REST.Port < 1 || c.REST.Port > 65535 {
			return fmt.Errorf("invalid REST port: %d (must be 1-65535)", c.REST.Port)
		}
		if c.REST.AuthEnabled && c.REST.JWTSecret == "" {
			return fmt.Errorf("REST auth enabled but no JWT secret specified")
		}
		if c.REST.RateLimitEnabled && c.REST.RateLimitPerSec <= 0 {
			return fmt.Errorf("invalid REST rate limit: %v (must be > 0)", c.REST.RateLimitPerSec)
		}
	}

	if c.Scoring.K < 1 {
		return fmt.Errorf("invalid k: %d (must be > 0)", c.Scoring.K)
	}
	if c.Scoring.AlphaSize < 2 {
		return fmt.Errorf("invalid alphabet size: %d (must be >= 2)", c.Scoring.AlphaSize)
	}
	if c.Scoring.Threshold < 0 || c.Scoring.Threshold > 1 {
		return fmt.Errorf("invalid threshold: %v (must be in [0,1])", c.Scoring.Threshold)
	}
	if c.Scoring.WorkerNum < 1 {
		return fmt.Errorf("invalid scoring worker count: %d (must be > 0)", c.Scoring.WorkerNum)
	}

	if c.Cluster.BlockSize < 1 {
		return fmt.Errorf("invalid cluster block size: %d (must be > 0)", c.Cluster.BlockSize)
	}
	if c.Cluster.VBlockSize < c.Cluster.BlockSize {
		return fmt.Errorf("invalid cluster v-block size: %d (must be >= block size %d)", c.Cluster.VBlockSize, c.Cluster.BlockSize)
	}
	if c.Cluster.MaxIterations < 1 {
		return fmt.Errorf("invalid cluster max iterations: %d (must be > 0)", c.Cluster.MaxIterations)
	}
	if c.Cluster.WorkerNum < 1 {
		return fmt.Errorf("invalid cluster worker count: %d (must be > 0)", c.Cluster.WorkerNum)
	}

	if c.Training.MinBlockSize < 1 || c.Training.MaxBlockSize < c.Training.MinBlockSize {
		return fmt.Errorf("invalid mutation block size range: [%d, %d]", c.Training.MinBlockSize, c.Training.MaxBlockSize)
	}
	if c.Training.MinFeatNum < 1 || c.Training.MaxFeatNum < c.Training.MinFeatNum {
		return fmt.Errorf("invalid feature count range: [%d, %d]", c.Training.MinFeatNum, c.Training.MaxFeatNum)
	}

	if c.Model.Path == "" {
		return fmt.Errorf("model path not specified")
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
