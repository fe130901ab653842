// Package llm provides the language model drivers used for risk analysis.
package llm

import (
	"context"
	"net/http"
	"sort"
)

// Driver is the interface that all LLM drivers must implement.
type Driver interface {
	// Complete sends a single prompt and returns the model's JSON text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the model name used for completions.
	Model() string

	// HealthCheck verifies the driver can reach its model.
	HealthCheck(ctx context.Context) error
}

// Config carries the settings a driver factory may need.
type Config struct {
	HTTPClient  *http.Client
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
}

// Factory builds a driver from configuration.
type Factory func(ctx context.Context, cfg Config) (Driver, error)

// DriverRegistry manages available LLM drivers.
type DriverRegistry struct {
	drivers map[string]Factory
}

// NewDriverRegistry creates a new driver registry.
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{
		drivers: make(map[string]Factory),
	}
}

// Register registers a new driver.
func (r *DriverRegistry) Register(name string, factory Factory) {
	r.drivers[name] = factory
}

// Get builds the named driver.
func (r *DriverRegistry) Get(ctx context.Context, name string, cfg Config) (Driver, error) {
	factory, ok := r.drivers[name]
	if !ok {
		return nil, &DriverNotFoundError{Name: name}
	}
	return factory(ctx, cfg)
}

// Names returns the registered driver names, sorted.
func (r *DriverRegistry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DriverNotFoundError is returned when a requested driver doesn't exist.
type DriverNotFoundError struct {
	Name string
}

func (e *DriverNotFoundError) Error() string {
	return "driver not found: " + e.Name
}

// DefaultRegistry is the global driver registry.
var DefaultRegistry = NewDriverRegistry()
