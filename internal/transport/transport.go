// Package transport defines the boundary between the pipeline and the
// upstream project-management API. The executor hands a fully-built
// operation to a Dispatcher; everything upstream of that call (HTTP, auth,
// webhooks) lives outside the core. Dispatch errors must be readable by the
// recovery classifier, so implementations return *types.OpError wherever
// they can supply a kind or status.
package transport

import (
	"context"
	"fmt"

	"boardpilot/internal/types"
)

// Dispatcher sends one mutation to the upstream API and returns the raw
// response payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, method, query string, variables map[string]any) (map[string]any, error)
}

// Resource names the upstream resource family a method belongs to.
type Resource string

const (
	ResourceItem       Resource = "item"
	ResourceBoard      Resource = "board"
	ResourceUser       Resource = "user"
	ResourceAutomation Resource = "automation"
)

// methodResources routes mutation methods to their resource family.
var methodResources = map[string]Resource{
	"create_item":                   ResourceItem,
	"change_multiple_column_values": ResourceItem,
	"change_column_value":           ResourceItem,
	"move_item_to_group":            ResourceItem,
	"delete_item":                   ResourceItem,
	"create_board":                  ResourceBoard,
	"update_board":                  ResourceBoard,
	"create_column":                 ResourceBoard,
	"change_column_title":           ResourceBoard,
	"manage_users":                  ResourceUser,
	"create_automation":             ResourceAutomation,
}

// ResourceFor reports the resource family for a method.
func ResourceFor(method string) (Resource, bool) {
	r, ok := methodResources[method]
	return r, ok
}

// Registry holds one dispatcher per resource family and routes by method
// name. A single dispatcher may serve several families.
type Registry struct {
	dispatchers map[Resource]Dispatcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{dispatchers: map[Resource]Dispatcher{}}
}

// Register binds a dispatcher to a resource family, replacing any previous
// binding.
func (r *Registry) Register(res Resource, d Dispatcher) {
	r.dispatchers[res] = d
}

// RegisterAll binds one dispatcher to every resource family.
func (r *Registry) RegisterAll(d Dispatcher) {
	for _, res := range []Resource{ResourceItem, ResourceBoard, ResourceUser, ResourceAutomation} {
		r.dispatchers[res] = d
	}
}

// For returns the dispatcher responsible for a method.
func (r *Registry) For(method string) (Dispatcher, error) {
	res, ok := methodResources[method]
	if !ok {
		return nil, types.NewOpError(types.ErrInvalidData, fmt.Sprintf("no transport route for method %q", method))
	}
	d, ok := r.dispatchers[res]
	if !ok {
		return nil, types.NewOpError(types.ErrInvalidData, fmt.Sprintf("no dispatcher registered for %s operations", res))
	}
	return d, nil
}
