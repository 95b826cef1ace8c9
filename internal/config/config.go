package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/webforge/webforge/internal/utils"
)

const envPrefix = "WEBFORGE"

var (
	DefaultSourceDir = "src"
	DefaultOutputDir = "dist"
	DefaultPort      = 3000
)

// ConfigurationError reports a missing or invalid configuration value.
// It is always raised before any network I/O is attempted.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Globs holds the source glob sets for each build task. Patterns prefixed
// with "!" are exclusions and always win over inclusions.
type Globs struct {
	Styles  []string
	Scripts []string
	Images  []string
	Assets  []string
}

// Tools names the external binaries each build task shells out to.
type Tools struct {
	Styles  string
	Scripts string
	Images  string
}

// DeployTarget is one named remote destination (staging, production).
type DeployTarget struct {
	Name        string
	Host        string
	Port        int
	User        string
	Password    string
	RemoteRoot  string
	Concurrency int
	FileTimeout time.Duration
}

type Config struct {
	ProjectDir string
	SourceDir  string
	OutputDir  string
	Port       int
	Globs      Globs
	Tools      Tools
	Targets    map[string]*DeployTarget
}

// Load resolves configuration from the process environment. A .env file in
// the project dir is merged in first (process env wins), then defaults.
func Load(projectDir string) (*Config, error) {
	projectDir, err := utils.ResolvePath(projectDir)
	if err != nil {
		return nil, err
	}

	// best effort, the file is optional
	_ = godotenv.Load(projectDir + "/.env")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("source_dir", DefaultSourceDir)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("deploy_concurrency", 10)
	v.SetDefault("deploy_file_timeout", "5m")
	v.SetDefault("style_tool", "sass")
	v.SetDefault("script_tool", "esbuild")
	v.SetDefault("image_tool", "cwebp")

	srcDir := v.GetString("source_dir")
	cfg := &Config{
		ProjectDir: projectDir,
		SourceDir:  srcDir,
		OutputDir:  v.GetString("output_dir"),
		Port:       v.GetInt("port"),
		Globs:      defaultGlobs(srcDir),
		Tools: Tools{
			Styles:  v.GetString("style_tool"),
			Scripts: v.GetString("script_tool"),
			Images:  v.GetString("image_tool"),
		},
		Targets: map[string]*DeployTarget{},
	}

	for _, name := range []string{"staging", "production"} {
		cfg.Targets[name] = &DeployTarget{
			Name:        name,
			Host:        v.GetString(name + "_host"),
			Port:        intOr(v.GetInt(name+"_port"), 22),
			User:        v.GetString(name + "_user"),
			Password:    v.GetString(name + "_password"),
			RemoteRoot:  v.GetString(name + "_root"),
			Concurrency: v.GetInt("deploy_concurrency"),
			FileTimeout: v.GetDuration("deploy_file_timeout"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultGlobs(srcDir string) Globs {
	return Globs{
		Styles:  []string{srcDir + "/styles/**/*.scss"},
		Scripts: []string{srcDir + "/scripts/**/*.js"},
		Images:  []string{srcDir + "/images/**/*.{png,jpg,jpeg,gif,svg}"},
		Assets: []string{
			srcDir + "/assets/**/*",
			"!" + srcDir + "/assets/**/*.tmp",
		},
	}
}

func (c *Config) Validate() error {
	if c.ProjectDir == "" {
		return &ConfigurationError{Key: "project_dir", Reason: "cannot be empty"}
	}
	if c.OutputDir == "" {
		return &ConfigurationError{Key: "output_dir", Reason: "cannot be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigurationError{Key: "port", Reason: fmt.Sprintf("invalid port %d", c.Port)}
	}
	return nil
}

// Target resolves a named deploy target, failing with a ConfigurationError
// for any missing required value. Called before any connection attempt.
func (c *Config) Target(name string) (*DeployTarget, error) {
	t, ok := c.Targets[name]
	if !ok {
		return nil, &ConfigurationError{Key: name, Reason: "unknown deploy target"}
	}

	envKey := strings.ToUpper(envPrefix + "_" + name)
	if t.Host == "" {
		return nil, &ConfigurationError{Key: envKey + "_HOST", Reason: "required for deploy"}
	}
	if t.User == "" {
		return nil, &ConfigurationError{Key: envKey + "_USER", Reason: "required for deploy"}
	}
	if t.Password == "" {
		return nil, &ConfigurationError{Key: envKey + "_PASSWORD", Reason: "required for deploy"}
	}
	if t.RemoteRoot == "" {
		return nil, &ConfigurationError{Key: envKey + "_ROOT", Reason: "required for deploy"}
	}
	if t.Concurrency <= 0 {
		t.Concurrency = 10
	}
	if t.FileTimeout <= 0 {
		t.FileTimeout = 5 * time.Minute
	}
	return t, nil
}

// OutputPath returns the absolute path of the compiled output dir.
func (c *Config) OutputPath() string {
	if strings.HasPrefix(c.OutputDir, "/") {
		return c.OutputDir
	}
	return c.ProjectDir + "/" + c.OutputDir
}

// SourcePath returns the absolute path of the source dir.
func (c *Config) SourcePath() string {
	if strings.HasPrefix(c.SourceDir, "/") {
		return c.SourceDir
	}
	return c.ProjectDir + "/" + c.SourceDir
}

func intOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
