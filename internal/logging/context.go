package logging

import (
	"context"
	"log/slog"

	"github.com/wwcc-dale/zaphod/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for import run identifiers.
	FieldRunID = "run_id"
	// FieldPhase is the standardized structured logging key for pipeline phase names.
	FieldPhase = "phase"
	// FieldResourceID is the standardized structured logging key for manifest resource identifiers.
	FieldResourceID = "resource_id"
	// FieldArchive is the standardized structured logging key for cartridge archive paths.
	FieldArchive = "archive"
	// FieldCourse is the standardized structured logging key for course directory paths.
	FieldCourse = "course"
	// FieldPath is the standardized structured logging key for file paths.
	FieldPath = "path"
	// FieldMember is the standardized structured logging key for archive member names.
	FieldMember = "member"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if resource, ok := services.ResourceIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldResourceID, resource))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
