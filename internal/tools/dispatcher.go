// Package tools maps tool invocations from the completion service onto the
// matching and booking engines and serializes their results.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
	"github.com/goodfoods/reservation-platform/pkg/tracing"
)

// FailureReason classifies a tool call that did not produce a backend result.
type FailureReason string

const (
	FailureUnknownTool      FailureReason = "unknown_tool"
	FailureInvalidArguments FailureReason = "invalid_arguments"
	FailureBackend          FailureReason = "backend_error"
)

// Result is the serialized outcome of one tool call.
type Result struct {
	CallID        string
	Name          string
	Content       string
	IsError       bool
	FailureReason FailureReason
}

type failurePayload struct {
	Status  string        `json:"status"`
	Error   FailureReason `json:"error"`
	Message string        `json:"message"`
}

// Dispatcher validates tool arguments and forwards them to a Backend.
type Dispatcher struct {
	backend     Backend
	definitions []Definition
	schemas     map[string]*jsonschema.Schema
	logger      *logger.Logger
}

// NewDispatcher compiles the tool schemas and creates a dispatcher.
func NewDispatcher(backend Backend, log *logger.Logger) (*Dispatcher, error) {
	defs := Definitions()
	schemas := make(map[string]*jsonschema.Schema, len(defs))
	for _, def := range defs {
		schema, err := compileSchema(def.Name, def.Schema)
		if err != nil {
			return nil, err
		}
		schemas[def.Name] = schema
	}

	return &Dispatcher{
		backend:     backend,
		definitions: defs,
		schemas:     schemas,
		logger:      log,
	}, nil
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	url := name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add %s schema resource: %w", name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return schema, nil
}

// Definitions returns the tools this dispatcher serves.
func (d *Dispatcher) Definitions() []Definition {
	return d.definitions
}

// Dispatch runs one tool call. Unknown tools, invalid arguments and backend
// failures are reported inside the Result so the dialogue can continue. The
// error is non-nil only when ctx ended before the call completed.
func (d *Dispatcher) Dispatch(ctx context.Context, call model.ToolCall) (Result, error) {
	ctx, span := tracing.Tracer("tools").Start(ctx, "tools.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("tool", call.Name), attribute.String("call_id", call.ID))

	log := d.logger.With(zap.String("tool", call.Name), zap.String("call_id", call.ID))
	log.Info("dispatching tool call", zap.ByteString("arguments", call.Arguments))

	schema, ok := d.schemas[call.Name]
	if !ok {
		return d.failure(call, FailureUnknownTool, fmt.Sprintf("No tool found with name %s", call.Name)), nil
	}

	args := call.Arguments
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return d.failure(call, FailureInvalidArguments, fmt.Sprintf("arguments are not valid JSON: %v", err)), nil
	}
	if err := schema.Validate(doc); err != nil {
		return d.failure(call, FailureInvalidArguments, err.Error()), nil
	}

	var payload any
	switch call.Name {
	case LookupDiningOptions:
		var criteria model.SearchCriteria
		if err := decodeStrict(args, &criteria); err != nil {
			return d.failure(call, FailureInvalidArguments, err.Error()), nil
		}
		payload, err = d.backend.LookupDiningOptions(ctx, criteria)
	case ConfirmTableBooking:
		var req model.ReservationRequest
		if err := decodeStrict(args, &req); err != nil {
			return d.failure(call, FailureInvalidArguments, err.Error()), nil
		}
		payload, err = d.backend.ConfirmTableBooking(ctx, req)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.RecordToolCall(call.Name, "cancelled")
		return Result{}, ctxErr
	}
	if err != nil {
		log.Error("tool backend failed", zap.Error(err))
		span.RecordError(err)
		metrics.RecordToolCall(call.Name, string(FailureBackend))
		content, _ := json.Marshal(map[string]string{
			"error": fmt.Sprintf("Failed to execute %s: %v", call.Name, err),
		})
		return Result{
			CallID:        call.ID,
			Name:          call.Name,
			Content:       string(content),
			IsError:       true,
			FailureReason: FailureBackend,
		}, nil
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode %s result: %w", call.Name, err)
	}

	metrics.RecordToolCall(call.Name, "ok")
	log.Info("tool call completed", zap.Int("result_bytes", len(content)))

	return Result{
		CallID:  call.ID,
		Name:    call.Name,
		Content: string(content),
	}, nil
}

func (d *Dispatcher) failure(call model.ToolCall, reason FailureReason, message string) Result {
	d.logger.Warn("tool call rejected",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.String("reason", string(reason)),
		zap.String("message", message),
	)
	label := call.Name
	if reason == FailureUnknownTool {
		label = "unknown"
	}
	metrics.RecordToolCall(label, string(reason))

	content, _ := json.Marshal(failurePayload{
		Status:  "error",
		Error:   reason,
		Message: message,
	})
	return Result{
		CallID:        call.ID,
		Name:          call.Name,
		Content:       string(content),
		IsError:       true,
		FailureReason: reason,
	}
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
