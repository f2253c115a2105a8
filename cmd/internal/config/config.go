// Package config loads flag defaults from a YAML file.  Values from the
// file apply only to flags that were not set on the command line or in
// the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string   `yaml:"log-level"`
	Algo     string   `yaml:"algo"`
	IPFS     string   `yaml:"ipfs"`
	Env      []string `yaml:"env"`
	Guests   []string `yaml:"guest"`
	HTTP     *string  `yaml:"http"` // nil if unset; empty disables HTTP
	MaxN     uint64   `yaml:"max-n"`
	Listen   []string `yaml:"listen"`
	PrivKey  string   `yaml:"privkey"`
	Peer     string   `yaml:"peer"`
	Proc     string   `yaml:"proc"`
}

// Load the file at path.  An empty path yields the zero Config.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode a YAML document.  Unknown keys are an error.
func Decode(r io.Reader) (cfg Config, err error) {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err = d.Decode(&cfg); errors.Is(err, io.EOF) {
		err = nil // empty document
	}

	return
}

// Level parses the log level, returning def if none was configured.
func (cfg Config) Level(def slog.Level) (slog.Level, error) {
	if cfg.LogLevel == "" {
		return def, nil
	}

	var level slog.Level
	err := level.UnmarshalText([]byte(cfg.LogLevel))
	return level, err
}

// Apply sets the flags of c's command that are still at their defaults.
func (cfg Config) Apply(c *cli.Context) error {
	for name, values := range cfg.values() {
		if len(values) == 0 || c.IsSet(name) || !defines(c, name) {
			continue
		}

		for _, v := range values {
			if err := c.Set(name, v); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
		}
	}

	return nil
}

// Before is a cli.BeforeFunc that loads the file named by the global
// --config flag and applies it to the command.
func Before(c *cli.Context) error {
	cfg, err := Load(c.Path("config"))
	if err != nil {
		return err
	}

	return cfg.Apply(c)
}

func (cfg Config) values() map[string][]string {
	vs := map[string][]string{
		"algo":    nonempty(cfg.Algo),
		"ipfs":    nonempty(cfg.IPFS),
		"env":     cfg.Env,
		"guest":   cfg.Guests,
		"listen":  cfg.Listen,
		"privkey": nonempty(cfg.PrivKey),
		"peer":    nonempty(cfg.Peer),
		"proc":    nonempty(cfg.Proc),
	}

	if cfg.HTTP != nil {
		vs["http"] = []string{*cfg.HTTP}
	}

	if cfg.MaxN != 0 {
		vs["max-n"] = []string{strconv.FormatUint(cfg.MaxN, 10)}
	}

	return vs
}

func nonempty(s string) []string {
	if s == "" {
		return nil
	}

	return []string{s}
}

func defines(c *cli.Context, name string) bool {
	if c.Command == nil {
		return false
	}

	for _, f := range c.Command.Flags {
		if slices.Contains(f.Names(), name) {
			return true
		}
	}

	return false
}
