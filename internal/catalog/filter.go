package catalog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"launcher/internal/domain"
)

// maxCachedFilters bounds the compiled filter cache.
const maxCachedFilters = 128

// Filter is a compiled CEL predicate over extensions. Expressions see the
// extension as the map variable "ext", e.g.
//
//	ext.platform && "status:stable" in ext.tags
type Filter struct {
	expr    string
	program cel.Program
}

// filterCache holds compiled filters keyed by expression.
type filterCache struct {
	mu      sync.Mutex
	env     *cel.Env
	entries map[string]*Filter
}

func newFilterCache() (*filterCache, error) {
	env, err := cel.NewEnv(
		cel.Variable("ext", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &filterCache{env: env, entries: make(map[string]*Filter)}, nil
}

// compile returns the compiled filter for expr.
func (c *filterCache) compile(expr string) (*Filter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.entries[expr]; ok {
		return f, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, issues.Err())
	}
	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}

	if len(c.entries) >= maxCachedFilters {
		c.entries = make(map[string]*Filter)
	}
	f := &Filter{expr: expr, program: program}
	c.entries[expr] = f
	return f, nil
}

// Match evaluates the filter against ext. Non-boolean results are an error.
func (f *Filter) Match(ext domain.ExtensionInfo) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"ext": map[string]any{
			"id":           ext.ID,
			"version":      ext.Version,
			"name":         ext.Name,
			"description":  ext.Description,
			"shortName":    ext.ShortName,
			"category":     ext.Category,
			"tags":         ext.Tags,
			"keywords":     ext.Keywords,
			"order":        ext.Order,
			"platform":     ext.Platform,
			"providesCode": ext.ProvidesCode,
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", domain.ErrInvalidFilter, f.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s: result is %s, not bool", domain.ErrInvalidFilter, f.expr, out.Type().TypeName())
	}
	return b, nil
}
