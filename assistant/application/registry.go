package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Registry holds the native tools in registration order.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]domain.NativeTool
	order   []string
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]domain.NativeTool),
		metrics: m,
	}
}

// Register adds tools; a duplicate name is an error.
func (r *Registry) Register(tools ...domain.NativeTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		if t.Name == "" || t.Handler == nil {
			return fmt.Errorf("tool %q is incomplete", t.Name)
		}
		if _, exists := r.tools[t.Name]; exists {
			return fmt.Errorf("tool %q already registered", t.Name)
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return nil
}

// Definitions returns the schemas sent to the model.
func (r *Registry) Definitions() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Tool)
	}
	return out
}

// Native returns the registered tools with their handlers.
func (r *Registry) Native() []domain.NativeTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.NativeTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// List is the name and description listing for the dashboard.
func (r *Registry) List() []domain.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, domain.ToolInfo{Name: t.Name, Description: t.Description})
	}
	return out
}

// Call runs a tool by name. Handler panics become errors.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result any, err error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgError.NotFoundError(fmt.Sprintf("tool %s not found", name))
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("[ASSISTANT] Tool %s panicked: %v", name, rec)
			result, err = nil, pkgError.InternalServerError(fmt.Sprintf("tool %s failed", name))
		}
		r.metrics.RecordToolCall(name, err)
	}()

	return t.Handler(ctx, args)
}
