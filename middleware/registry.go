package middleware

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/c360/docstreams/errors"
)

// Factory creates a middleware instance from raw JSON configuration.
// Factories perform no I/O; anything touching the network belongs in
// the runner's lifecycle.
type Factory func(instanceName string, rawConfig json.RawMessage) (Middleware, error)

// Registration holds a factory and its metadata.
type Registration struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	InputTypes  []string `json:"inputTypes"`
	OutputTypes []string `json:"outputTypes"`
	Factory     Factory  `json:"-"`
}

// Registry manages middleware factories and graph node instances.
// Pipeline builders look factories up by name when materializing a
// declarative definition into a graph.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*Registration
	nodes     map[string]*Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
		nodes:     make(map[string]*Node),
	}
}

// RegisterFactory registers a middleware factory under its name.
func (r *Registry) RegisterFactory(reg *Registration) error {
	if reg == nil || reg.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory required")
	}
	if err := ValidateName(reg.Name); err != nil {
		return errors.Wrap(err, "Registry", "RegisterFactory", "validate factory name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reg.Name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("factory %q is already registered", reg.Name),
			"Registry", "RegisterFactory", "duplicate factory check")
	}
	r.factories[reg.Name] = reg
	return nil
}

// CreateNode instantiates a middleware through its factory and wraps
// it as a graph node registered under the instance name.
func (r *Registry) CreateNode(
	instanceName, factoryName string, rawConfig json.RawMessage, notifier *Notifier,
) (*Node, error) {
	if err := ValidateName(instanceName); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateNode", "validate instance name")
	}

	r.mu.RLock()
	reg, exists := r.factories[factoryName]
	r.mu.RUnlock()
	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown middleware factory %q", factoryName),
			"Registry", "CreateNode", "factory lookup")
	}

	mw, err := reg.Factory(instanceName, rawConfig)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateNode", "factory execution")
	}

	node, err := NewNode(mw, notifier)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateNode", "wrap node")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[instanceName]; exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("instance %q is already registered", instanceName),
			"Registry", "CreateNode", "duplicate instance check")
	}
	r.nodes[instanceName] = node
	return node, nil
}

// Node retrieves a registered node by instance name, or nil.
func (r *Registry) Node(name string) *Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[name]
}

// Nodes returns a copy of the instance map.
func (r *Registry) Nodes() map[string]*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Node, len(r.nodes))
	maps.Copy(out, r.nodes)
	return out
}

// ListFactories returns metadata for every registered factory, without
// the factory functions.
func (r *Registry) ListFactories() map[string]Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Registration, len(r.factories))
	for name, reg := range r.factories {
		out[name] = Registration{
			Name:        reg.Name,
			Description: reg.Description,
			Version:     reg.Version,
			InputTypes:  reg.InputTypes,
			OutputTypes: reg.OutputTypes,
		}
	}
	return out
}
