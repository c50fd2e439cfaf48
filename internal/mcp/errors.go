package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/plantrack/internal/backup"
	"github.com/rpggio/plantrack/internal/domain/project"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects for current ids"}
	case errors.Is(err, project.ErrTemplateNotFound):
		return &APIError{Code: "TEMPLATE_NOT_FOUND", Message: "template not found", RecoveryHint: "Call list_templates for current ids"}
	case errors.Is(err, project.ErrActivityNotFound):
		return &APIError{Code: "ACTIVITY_NOT_FOUND", Message: "activity not found", RecoveryHint: "Call get_project to refresh activity ids"}
	case errors.Is(err, project.ErrIndexOutOfRange):
		return &APIError{Code: "INDEX_OUT_OF_RANGE", Message: "index out of range", RecoveryHint: "Indexes are zero-based positions in the current list"}
	case errors.Is(err, project.ErrUnknownBucket):
		return &APIError{Code: "UNKNOWN_BUCKET", Message: err.Error(), RecoveryHint: "Use pending, ontrack, risk or done"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, backup.ErrMalformed), errors.Is(err, project.ErrDuplicateID):
		return &APIError{Code: "MALFORMED_BACKUP", Message: err.Error(), RecoveryHint: "Current data was left unchanged"}
	case errors.Is(err, backup.ErrNotFound):
		return &APIError{Code: "BACKUP_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call export_backup with archive=true first"}
	case errors.Is(err, backup.ErrInvalidName):
		return &APIError{Code: "INVALID_BACKUP_NAME", Message: err.Error()}
	default:
		return nil
	}
}
