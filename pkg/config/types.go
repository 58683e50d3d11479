package config

// Config represents the fishery service configuration
type Config struct {
	LogLevel   string           `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat  string           `yaml:"log_format" env:"LOG_FORMAT"`
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Store      StoreConfig      `yaml:"store" envPrefix:"STORE_"`
	Evaluation EvaluationConfig `yaml:"evaluation" envPrefix:"EVALUATION_"`
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" env:"GRPC_ADDR"`
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
}

// StoreConfig selects the evaluation archive backend
type StoreConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"` // memory or sqlite
	Path    string `yaml:"path" env:"PATH"`
}

// EvaluationConfig holds the default evaluation settings applied when a
// request leaves them unset.
type EvaluationConfig struct {
	Realizations int   `yaml:"realizations" env:"REALIZATIONS"`
	Steps        int   `yaml:"steps" env:"STEPS"`
	NRBF         int   `yaml:"n_rbf" env:"N_RBF"`
	Seed         int64 `yaml:"seed" env:"SEED"`
	Workers      int   `yaml:"workers" env:"WORKERS"`
}

// Scenario describes one state of the fishery: the strategy tag and the
// ecological parameters.
type Scenario struct {
	Name     string  `yaml:"name,omitempty"`
	Strategy string  `yaml:"strategy"` // previous_prey, initial_only or constant
	A        float64 `yaml:"a"`        // predator attack rate
	B        float64 `yaml:"b"`        // prey growth rate
	C        float64 `yaml:"c"`        // conversion efficiency
	D        float64 `yaml:"d"`        // predator death rate
	H        float64 `yaml:"h"`        // handling time
	K        float64 `yaml:"k"`        // carrying capacity
	M        float64 `yaml:"m"`        // predator interference
	SigmaX   float64 `yaml:"sigma_x"`
	SigmaY   float64 `yaml:"sigma_y"`
}

// PolicySet is a named collection of decision vectors
type PolicySet struct {
	NRBF     int           `yaml:"n_rbf"`
	Policies []PolicyEntry `yaml:"policies"`
}

// PolicyEntry is one decision vector
type PolicyEntry struct {
	Name string    `yaml:"name"`
	Vars []float64 `yaml:"vars"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			GRPCAddr: ":50051",
			HTTPAddr: ":8080",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Evaluation: EvaluationConfig{
			Realizations: 100,
			Steps:        100,
			NRBF:         2,
			Workers:      4,
		},
	}
}

// DefaultScenario returns the reference parameterisation of the fishery
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:     "baseline",
		Strategy: "previous_prey",
		A:        0.005,
		B:        0.5,
		C:        0.5,
		D:        0.1,
		H:        0.1,
		K:        2000,
		M:        0.7,
		SigmaX:   0.004,
		SigmaY:   0.004,
	}
}
