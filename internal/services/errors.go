package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Stage code wraps underlying
// errors with one of these via Wrap; boundaries (the transcode job, the HTTP
// layer) branch on errors.Is.
var (
	ErrProbe        = errors.New("probe error")
	ErrEncode       = errors.New("encode error")
	ErrModeration   = errors.New("moderation error")
	ErrNotFound     = errors.New("not found")
	ErrOwnership    = errors.New("ownership error")
	ErrRange        = errors.New("range error")
	ErrValidation   = errors.New("validation error")
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
