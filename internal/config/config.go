package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"market-reconcile/internal/data"
	"market-reconcile/internal/model"
	"market-reconcile/internal/store"
)

// Defaults applied by Load for options left unset.
const (
	DefaultCacheRoot       = "./data"
	DefaultMaxFetchRetries = 5
	DefaultWorkerPoolSize  = 4
	DefaultTimezone        = "Europe/Madrid"
	DefaultStoreDir        = "./dataframes"
	DefaultSourceTimeout   = 30 * time.Second
	DefaultCacheTTL        = time.Hour
	DefaultAPIPort         = "8080"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Year            int    `yaml:"year"`
	CacheRoot       string `yaml:"cache_root"`
	MaxFetchRetries int    `yaml:"max_fetch_retries"`
	WorkerPoolSize  int    `yaml:"worker_pool_size"`

	Source SourceConfig `yaml:"source"`
	Market MarketConfig `yaml:"market"`
	Store  StoreConfig  `yaml:"store"`

	// Optional: load plant parameters from a separate YAML.
	// If both PlantFile and Plant are provided, Plant overrides PlantFile.
	PlantFile string      `yaml:"plant_file"`
	Plant     PlantConfig `yaml:"plant"`

	API      APIConfig      `yaml:"api"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type SourceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type MarketConfig struct {
	Timezone string `yaml:"timezone"`
}

type StoreConfig struct {
	Driver   string        `yaml:"driver"` // file | sqlite | postgres
	Path     string        `yaml:"path"`
	DSN      string        `yaml:"dsn"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type PlantConfig struct {
	Name         string  `yaml:"name"`
	RatedPowerMW float64 `yaml:"rated_power_mw"`
	// Timezone of the naive production timestamps; defaults to the market timezone.
	Timezone   string          `yaml:"timezone"`
	RebaseYear bool            `yaml:"rebase_year"`
	Variants   []VariantConfig `yaml:"variants"`
}

// VariantConfig points at one orientation's production CSV.
type VariantConfig struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

type APIConfig struct {
	Port           string   `yaml:"port"`
	Env            string   `yaml:"env"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ScheduleConfig struct {
	RebuildCron string `yaml:"rebuild_cron"`
	Years       []int  `yaml:"years"`
}

// Load reads path, fills defaults, applies environment overrides and validates.
// An empty path starts from defaults alone.
func Load(path string) (*Config, error) {
	return LoadWith(path, Overrides{}, os.Getenv)
}

// LoadWith layers file, environment and command-line overrides in that order,
// then fills defaults and validates the result.
func LoadWith(path string, o Overrides, getenv func(string) string) (*Config, error) {
	c := &Config{}
	if path != "" {
		var err error
		if c, err = LoadUnchecked(path); err != nil {
			return nil, err
		}
	}
	c.ApplyEnv(getenv)
	c.Merge(o)
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	if c.PlantFile != "" {
		loaded, err := loadPlantFile(resolve(base, c.PlantFile))
		if err != nil {
			return nil, err
		}
		c.Plant = MergePlant(loaded, c.Plant)
	}
	for i := range c.Plant.Variants {
		c.Plant.Variants[i].File = resolve(base, c.Plant.Variants[i].File)
	}
	return &c, nil
}

// resolve prefers interpreting relative paths as relative to the config file
// directory, falling back to the path as given (relative to cwd).
func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(base, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyEnv overlays the supported environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("OMIE_BASE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := getenv("CACHE_ROOT"); v != "" {
		c.CacheRoot = v
	}
	if v := getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := getenv("STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := getenv("API_PORT"); v != "" {
		c.API.Port = v
	}
	if v := getenv("API_ENV"); v != "" {
		c.API.Env = v
	}
}

// ApplyDefaults fills every unset option.
func (c *Config) ApplyDefaults() {
	if c.CacheRoot == "" {
		c.CacheRoot = DefaultCacheRoot
	}
	if c.MaxFetchRetries == 0 {
		c.MaxFetchRetries = DefaultMaxFetchRetries
	}
	if c.WorkerPoolSize == 0 {
		c.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}
	if c.Market.Timezone == "" {
		c.Market.Timezone = DefaultTimezone
	}
	if c.Plant.Timezone == "" {
		c.Plant.Timezone = c.Market.Timezone
	}
	if c.Store.Driver == "" {
		c.Store.Driver = store.DriverFile
	}
	if c.Store.Path == "" {
		switch c.Store.Driver {
		case store.DriverSQLite:
			c.Store.Path = filepath.Join(DefaultStoreDir, "market.db")
		default:
			c.Store.Path = DefaultStoreDir
		}
	}
	if c.Store.CacheTTL == 0 {
		c.Store.CacheTTL = DefaultCacheTTL
	}
	if c.API.Port == "" {
		c.API.Port = DefaultAPIPort
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Year < 0 {
		return fmt.Errorf("year must be positive, got %d", c.Year)
	}
	if c.MaxFetchRetries < 1 {
		return fmt.Errorf("max_fetch_retries must be >= 1, got %d", c.MaxFetchRetries)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("worker_pool_size must be >= 1, got %d", c.WorkerPoolSize)
	}
	if c.Source.Timeout < 0 {
		return errors.New("source.timeout must be >= 0")
	}
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("market.timezone invalid: %w", err)
	}
	if c.Plant.Timezone != "" {
		if _, err := time.LoadLocation(c.Plant.Timezone); err != nil {
			return fmt.Errorf("plant.timezone invalid: %w", err)
		}
	}
	switch c.Store.Driver {
	case store.DriverFile, store.DriverSQLite:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be file, sqlite or postgres, got %q", c.Store.Driver)
	}
	if _, err := c.Plant.ToModel(); err != nil {
		return fmt.Errorf("plant config invalid: %w", err)
	}
	for _, v := range c.Plant.Variants {
		if v.File == "" {
			return fmt.Errorf("plant variant %q has no file", v.Name)
		}
	}
	if c.Schedule.RebuildCron != "" {
		if _, err := cron.ParseStandard(c.Schedule.RebuildCron); err != nil {
			return fmt.Errorf("schedule.rebuild_cron invalid: %w", err)
		}
	}
	for _, y := range c.Schedule.Years {
		if y < 1 {
			return fmt.Errorf("schedule.years contains invalid year %d", y)
		}
	}
	return nil
}

// ToModel builds the validated plant description.
func (p PlantConfig) ToModel() (*model.Plant, error) {
	names := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		names = append(names, v.Name)
	}
	return model.NewPlant(p.ToModelParams(), names...)
}

func (p PlantConfig) ToModelParams() model.PlantParams {
	return model.PlantParams{
		Name:         p.Name,
		RatedPowerMW: p.RatedPowerMW,
	}
}

// LoadVariants reads every configured orientation's production CSV. With
// rebase_year set, the samples are moved into year.
func (c *Config) LoadVariants(year int) ([]model.ProductionSeries, error) {
	if len(c.Plant.Variants) == 0 {
		return nil, errors.New("no plant variants configured")
	}
	loc, err := data.LoadLocation(c.Plant.Timezone)
	if err != nil {
		return nil, err
	}
	opts := data.ProductionOptions{Location: loc}
	if c.Plant.RebaseYear {
		opts.RebaseYear = year
	}
	out := make([]model.ProductionSeries, 0, len(c.Plant.Variants))
	for _, v := range c.Plant.Variants {
		s, err := data.LoadProductionCSV(v.File, v.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// StoreOptions maps the store section onto store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{Driver: c.Store.Driver, Path: c.Store.Path, DSN: c.Store.DSN}
}

// Overrides are command-line values; zero fields leave the config untouched.
type Overrides struct {
	Year            int
	CacheRoot       string
	MaxFetchRetries int
	WorkerPoolSize  int
	StoreDriver     string
	StorePath       string
}

// Merge overlays non-zero overrides onto c.
func (c *Config) Merge(o Overrides) {
	if o.Year != 0 {
		c.Year = o.Year
	}
	if o.CacheRoot != "" {
		c.CacheRoot = o.CacheRoot
	}
	if o.MaxFetchRetries != 0 {
		c.MaxFetchRetries = o.MaxFetchRetries
	}
	if o.WorkerPoolSize != 0 {
		c.WorkerPoolSize = o.WorkerPoolSize
	}
	if o.StoreDriver != "" {
		c.Store.Driver = o.StoreDriver
	}
	if o.StorePath != "" {
		c.Store.Path = o.StorePath
	}
}

type plantFileWrapper struct {
	Plant PlantConfig `yaml:"plant"`
}

func loadPlantFile(path string) (PlantConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PlantConfig{}, err
	}
	var w plantFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return PlantConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range w.Plant.Variants {
		w.Plant.Variants[i].File = resolve(base, w.Plant.Variants[i].File)
	}
	return w.Plant, nil
}

// MergePlant overlays non-zero fields from override onto base.
// Variants are replaced as a whole when override lists any.
func MergePlant(base, override PlantConfig) PlantConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.RatedPowerMW != 0 {
		out.RatedPowerMW = override.RatedPowerMW
	}
	if override.Timezone != "" {
		out.Timezone = override.Timezone
	}
	if override.RebaseYear {
		out.RebaseYear = true
	}
	if len(override.Variants) > 0 {
		out.Variants = override.Variants
	}
	return out
}

// YearOr returns c.Year, or fallback when unset.
func (c *Config) YearOr(fallback int) int {
	if c.Year != 0 {
		return c.Year
	}
	return fallback
}

// Addr returns the listen address of the API server.
func (a APIConfig) Addr() string {
	if _, err := strconv.Atoi(a.Port); err == nil {
		return ":" + a.Port
	}
	return a.Port
}
