package config

// Greenroomfile represents the structure of the greenroom.yaml configuration file.
// Every field is optional; environment variables override file values.
type Greenroomfile struct {
	Runner       string   `yaml:"runner"`
	Builder      *string  `yaml:"builder"`
	BuilderImage string   `yaml:"builder-image"`
	BaseImage    string   `yaml:"base-image"`
	AddApt       []string `yaml:"add-apt"`
	Network      string   `yaml:"network"`
	CacheFrom    []string `yaml:"cache-from"`
	CacheTo      []string `yaml:"cache-to"`
	SetEnvs      []string `yaml:"set-envs"`
	Experiments  []string `yaml:"experiments"`
	Fallback     string   `yaml:"fallback"`
	FinalPath    string   `yaml:"final-path"`
	LogLevel     string   `yaml:"log-level"`
	LogPath      *string  `yaml:"log-path"`
	StateDir     string   `yaml:"state-dir"`
}

// Environment variable names.
const (
	EnvConfig       = "GREENROOM_CONFIG"
	EnvRunner       = "GREENROOM_RUNNER"
	EnvBuilder      = "GREENROOM_BUILDER"
	EnvBuilderImage = "GREENROOM_BUILDER_IMAGE"
	EnvBaseImage    = "GREENROOM_BASE_IMAGE"
	EnvAddApt       = "GREENROOM_ADD_APT"
	EnvNetwork      = "GREENROOM_NETWORK"
	EnvCacheFrom    = "GREENROOM_CACHE_FROM_IMAGES"
	EnvCacheTo      = "GREENROOM_CACHE_TO_IMAGES"
	EnvSetEnvs      = "GREENROOM_SET_ENVS"
	EnvExperiment   = "GREENROOM_EXPERIMENT"
	EnvFallback     = "GREENROOM_FALLBACK"
	EnvFinalPath    = "GREENROOM_FINAL_PATH"
	EnvLog          = "GREENROOM_LOG"
	EnvLogPath      = "GREENROOM_LOG_PATH"
	EnvStateDir     = "GREENROOM_STATE_DIR"
)
