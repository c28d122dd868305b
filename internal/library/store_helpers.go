package library

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const itemColumns = "id, tenant_id, title, description, source_path, size_bytes, status, sensitivity, progress, duration_seconds, variants_json, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id          string
		tenantID    string
		title       string
		description sql.NullString
		sourcePath  string
		sizeBytes   sql.NullInt64
		statusStr   string
		sensitivity sql.NullString
		progress    sql.NullInt64
		duration    sql.NullFloat64
		variantsRaw sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&tenantID,
		&title,
		&description,
		&sourcePath,
		&sizeBytes,
		&statusStr,
		&sensitivity,
		&progress,
		&duration,
		&variantsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	variants, err := decodeVariants(variantsRaw.String)
	if err != nil {
		return nil, err
	}

	item := &Item{
		ID:          id,
		TenantID:    tenantID,
		Title:       title,
		Description: description.String,
		SourcePath:  sourcePath,
		SizeBytes:   sizeBytes.Int64,
		Status:      Status(statusStr),
		Sensitivity: Verdict(sensitivity.String),
		Progress:    int(progress.Int64),
		Variants:    variants,
		CreatedAt:   parseTimestamp(createdRaw),
		UpdatedAt:   parseTimestamp(updatedRaw),
	}
	if item.Sensitivity == "" {
		item.Sensitivity = VerdictUnchecked
	}
	if duration.Valid {
		value := duration.Float64
		item.DurationSeconds = &value
	}
	return item, nil
}

func decodeVariants(raw string) ([]Variant, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var variants []Variant
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	return variants, nil
}

func parseTimestamp(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
