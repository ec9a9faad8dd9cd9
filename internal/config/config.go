// Package config loads the machine description from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one machine: how much RAM it has, how often devices
// tick relative to CPU cycles, how many harts the interrupt controller
// serves and what to do with its framebuffer.
type Config struct {
	MemoryMB     uint64  `yaml:"memoryMB,omitempty"`
	TickInterval uint64  `yaml:"tickInterval,omitempty"`
	Harts        int     `yaml:"harts,omitempty"`
	Display      Display `yaml:"display"`
}

type Display struct {
	Headless bool   `yaml:"headless,omitempty"`
	Scale    int    `yaml:"scale,omitempty"`
	Title    string `yaml:"title,omitempty"`
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.MemoryMB == 0 {
		c.MemoryMB = 1024
	}
	if c.TickInterval == 0 {
		c.TickInterval = 1000
	}
	if c.Harts == 0 {
		c.Harts = 1
	}
	if c.Display.Scale == 0 {
		c.Display.Scale = 2
	}
	if c.Display.Title == "" {
		c.Display.Title = "rvsim"
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.Normalize()
	return c
}

// Load reads and normalizes a machine description.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	c.Normalize()

	if c.MemoryMB > 1024 {
		return Config{}, fmt.Errorf("%s: memoryMB %d exceeds the 1024 MB address window", path, c.MemoryMB)
	}
	return c, nil
}
