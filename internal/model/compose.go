package model

import "strings"

// ParseID validates a record identifier taken from a body, path or query.
// Absent or null identifiers yield the resource's "id required" message; any
// value that is not a positive integer yields its "invalid id" message.
func ParseID(res Resource, raw any) (int64, error) {
	if raw == nil {
		return 0, NewValidationError(res.Messages.IDRequired)
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return 0, NewValidationError(res.Messages.IDRequired)
	}

	id, ok := toInt64(raw)
	if !ok || id <= 0 {
		return 0, NewValidationError(res.Messages.InvalidID)
	}
	return id, nil
}

// ComposePatch turns a PATCH payload into a PartialUpdate. Keys outside the
// Field Set are ignored; null values count as absent.
func ComposePatch(res Resource, payload map[string]any) (PartialUpdate, error) {
	id, err := ParseID(res, payload[IDField])
	if err != nil {
		return PartialUpdate{}, err
	}

	assignments := make([]Assignment, 0, len(res.Fields))
	for _, f := range res.Fields {
		raw, present := payload[f.Name]
		if !present || raw == nil {
			continue
		}
		value, err := Normalize(f, raw)
		if err != nil {
			return PartialUpdate{}, err
		}
		assignments = append(assignments, Assignment{Field: f.Name, Value: value})
	}

	if len(assignments) == 0 {
		return PartialUpdate{}, NewValidationError(res.Messages.NoFields)
	}
	return PartialUpdate{ID: id, Assignments: assignments}, nil
}

// ValidateCreate requires every Field Set member and returns the normalized
// assignments in Field Set order.
func ValidateCreate(res Resource, payload map[string]any) ([]Assignment, error) {
	if !hasAllFields(res, payload) {
		return nil, NewValidationError(res.Messages.MissingCreateFields)
	}
	return normalizeAll(res, payload)
}

// ValidateReplace requires the id and every Field Set member.
func ValidateReplace(res Resource, payload map[string]any) (int64, []Assignment, error) {
	if payload[IDField] == nil || !hasAllFields(res, payload) {
		return 0, nil, NewValidationError(res.Messages.MissingReplaceFields)
	}
	id, err := ParseID(res, payload[IDField])
	if err != nil {
		return 0, nil, err
	}
	assignments, err := normalizeAll(res, payload)
	if err != nil {
		return 0, nil, err
	}
	return id, assignments, nil
}

func hasAllFields(res Resource, payload map[string]any) bool {
	for _, f := range res.Fields {
		if payload[f.Name] == nil {
			return false
		}
	}
	return true
}

func normalizeAll(res Resource, payload map[string]any) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(res.Fields))
	for _, f := range res.Fields {
		value, err := Normalize(f, payload[f.Name])
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, Assignment{Field: f.Name, Value: value})
	}
	return assignments, nil
}
