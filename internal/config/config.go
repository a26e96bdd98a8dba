package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DefaultGridScale is the scale of the reference dataset: 1 unit = 0.00002 degrees.
const DefaultGridScale = 0.00002

type Config struct {
	Port     string `mapstructure:"PORT"`
	DBUrl    string `mapstructure:"DB_URL"`
	RedisUrl string `mapstructure:"REDIS_URL"`

	DataDir     string `mapstructure:"DATA_DIR"`
	OutputFile  string `mapstructure:"OUTPUT_FILE"`
	FilePattern string `mapstructure:"FILE_PATTERN"`
	AreaIndex   int    `mapstructure:"AREA_INDEX"`
	TileIndexes string `mapstructure:"TILE_INDEXES"`
	Workers     int    `mapstructure:"WORKERS"`

	GridScale     float64 `mapstructure:"GRID_SCALE"`
	GridOriginSet bool    `mapstructure:"GRID_ORIGIN_SET"`
	GridOriginX   float64 `mapstructure:"GRID_ORIGIN_X"`
	GridOriginY   float64 `mapstructure:"GRID_ORIGIN_Y"`
	GridOriginZ   float64 `mapstructure:"GRID_ORIGIN_Z"`
}

// LoadConfig reads .env.<APP_ENV> from the given directories (the working
// directory when none are given). Environment variables take precedence over
// the file.
func LoadConfig(paths ...string) (c Config, err error) {
	// Get environment type from ENV variable or use development as default
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fmt.Sprintf(".env.%s", env))
	v.SetConfigType("env")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Continue even if file is not found
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	err = v.Unmarshal(&c)
	return
}

// Unmarshal only sees keys viper knows about, so every key gets a default
// for AutomaticEnv to override.
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", ":8080")
	v.SetDefault("DB_URL", "")
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("DATA_DIR", "./data/bldg")
	v.SetDefault("OUTPUT_FILE", "./output/buildings.json")
	v.SetDefault("FILE_PATTERN", "%d%d_bldg_6697_op.gml")
	v.SetDefault("AREA_INDEX", 543967)
	v.SetDefault("TILE_INDEXES", "70,71,72,73,74,60,61,62,63,64,52,53,54")
	v.SetDefault("WORKERS", 4)

	v.SetDefault("GRID_SCALE", DefaultGridScale)
	v.SetDefault("GRID_ORIGIN_SET", false)
	v.SetDefault("GRID_ORIGIN_X", 0.0)
	v.SetDefault("GRID_ORIGIN_Y", 0.0)
	v.SetDefault("GRID_ORIGIN_Z", 0.0)
}

// Indexes parses TileIndexes, a comma-separated list of tile numbers.
func (c Config) Indexes() ([]int, error) {
	return ParseIndexes(c.TileIndexes)
}

// ParseIndexes parses a comma-separated list of integers. Blank entries are
// ignored.
func ParseIndexes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid tile index %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
