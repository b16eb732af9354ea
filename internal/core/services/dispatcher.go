package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.ToolDispatcher = (*Dispatcher)(nil)

// ToolHandler runs a tool with validated arguments. Integer arguments are
// passed as int.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// Tool binds a declared schema to its handler.
type Tool struct {
	Spec    domain.ToolSpec
	Handler ToolHandler
}

// ValidationError describes an argument that does not match the tool schema.
type ValidationError struct {
	Tool   domain.ToolName
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: argument %q %s", e.Tool, e.Field, e.Reason)
}

// Unwrap lets errors.Is match domain.ErrArgumentValidation.
func (e *ValidationError) Unwrap() error {
	return domain.ErrArgumentValidation
}

// Dispatcher validates tool calls and routes them to handlers.
type Dispatcher struct {
	tools   map[domain.ToolName]Tool
	order   []domain.ToolName
	metrics driven.Metrics
}

// NewDispatcher registers tools. Every tool must be declared, registered once
// and have a handler.
func NewDispatcher(tools ...Tool) (*Dispatcher, error) {
	d := &Dispatcher{tools: make(map[domain.ToolName]Tool, len(tools))}
	for _, t := range tools {
		name := t.Spec.Name
		if !name.Valid() {
			return nil, fmt.Errorf("register tool %q: %w", name, domain.ErrUnknownTool)
		}
		if _, dup := d.tools[name]; dup {
			return nil, fmt.Errorf("register tool %q: duplicate: %w", name, domain.ErrInvalidInput)
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("register tool %q: nil handler: %w", name, domain.ErrInvalidInput)
		}
		d.tools[name] = t
		d.order = append(d.order, name)
	}
	return d, nil
}

// SetMetrics sets the metrics sink.
func (d *Dispatcher) SetMetrics(m driven.Metrics) {
	d.metrics = m
}

// Specs returns the registered schemas in registration order.
func (d *Dispatcher) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, len(d.order))
	for i, name := range d.order {
		specs[i] = d.tools[name].Spec
	}
	return specs
}

// Dispatch validates call and runs its handler. Failures are returned as a
// structured ToolError on the result; a panicking handler is reported as an
// internal error.
func (d *Dispatcher) Dispatch(ctx context.Context, call domain.ToolCall) (result domain.ToolResult) {
	result = domain.ToolResult{CallID: call.ID, Name: call.Name}
	log := logger.With("tool", string(call.Name))

	defer func() {
		if r := recover(); r != nil {
			log.Warn("handler panicked: %v", r)
			result.Content = ""
			result.Error = &domain.ToolError{Kind: domain.KindInternal, Message: fmt.Sprintf("tool %s failed unexpectedly", call.Name)}
		}
		outcome := "ok"
		if result.Error != nil {
			outcome = result.Error.Kind
		}
		if d.metrics != nil {
			d.metrics.ToolDispatched(string(call.Name), outcome)
		}
	}()

	tool, ok := d.tools[call.Name]
	if !ok {
		result.Error = toolError(fmt.Errorf("%q: %w", call.Name, domain.ErrUnknownTool))
		return result
	}

	if call.ParseError != nil {
		log.Debug("unparseable arguments: %v", call.ParseError)
		result.Error = toolError(call.ParseError)
		return result
	}

	args, err := validateArgs(&tool.Spec, call.Arguments)
	if err != nil {
		log.Debug("rejected arguments: %v", err)
		result.Error = toolError(err)
		return result
	}

	log.Debug("dispatching %v", args)
	content, err := tool.Handler(ctx, args)
	if err != nil {
		log.Debug("failed: %v", err)
		result.Error = toolError(err)
		return result
	}
	result.Content = content
	return result
}

// toolError converts err into the payload fed back to the model.
func toolError(err error) *domain.ToolError {
	return &domain.ToolError{Kind: domain.ErrorKind(err), Message: err.Error()}
}

// ToolErrorJSON renders a tool error as the JSON object sent to the model.
func ToolErrorJSON(e *domain.ToolError) string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"message":%q}`, e.Kind, e.Message)
	}
	return string(data)
}

// validateArgs checks args against spec and returns a normalised copy.
// Unknown fields, missing required fields, type mismatches and values
// outside an enum are rejected.
func validateArgs(spec *domain.ToolSpec, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))

	unknown := make([]string, 0)
	for name := range args {
		if _, ok := spec.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Tool: spec.Name, Field: unknown[0], Reason: "is not a declared argument"}
	}

	for _, p := range spec.Params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, &ValidationError{Tool: spec.Name, Field: p.Name, Reason: "is required"}
			}
			continue
		}

		switch p.Type {
		case domain.ParamString:
			s, ok := raw.(string)
			if !ok {
				return nil, &ValidationError{Tool: spec.Name, Field: p.Name, Reason: "must be a string"}
			}
			if p.Required && strings.TrimSpace(s) == "" {
				return nil, &ValidationError{Tool: spec.Name, Field: p.Name, Reason: "must not be empty"}
			}
			if len(p.Enum) > 0 && !inEnum(s, p.Enum) {
				return nil, &ValidationError{Tool: spec.Name, Field: p.Name, Reason: "must be one of " + strings.Join(p.Enum, ", ")}
			}
			out[p.Name] = s
		case domain.ParamInteger:
			n, err := toInt(raw)
			if err != nil {
				return nil, &ValidationError{Tool: spec.Name, Field: p.Name, Reason: err.Error()}
			}
			out[p.Name] = n
		default:
			return nil, &ValidationError{Tool: spec.Name, Field: p.Name, Reason: fmt.Sprintf("has unsupported type %q", p.Type)}
		}
	}
	return out, nil
}

var errNotInteger = errors.New("must be an integer")

// toInt accepts the integer encodings produced by JSON decoders.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, errNotInteger
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return 0, errNotInteger
			}
			return toInt(f)
		}
		return int(i), nil
	}
	return 0, errNotInteger
}

func inEnum(s string, values []string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}
