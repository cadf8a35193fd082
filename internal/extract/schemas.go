package extract

// Strict JSON schemas for the extraction stages. additionalProperties is
// false and every field is required, matching the provider's strict
// structured-output mode.

func qualifySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "subtitle", "date"},
		"properties": map[string]any{
			"title":    map[string]any{"type": "string"},
			"subtitle": map[string]any{"type": "string"},
			"date":     map[string]any{"type": "string"},
		},
	}
}

func headerSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"headers"},
		"properties": map[string]any{
			"headers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"heading", "date"},
					"properties": map[string]any{
						"heading": map[string]any{"type": "string"},
						"date":    map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

func grammaticalSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"events"},
		"properties": map[string]any{
			"events": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"action", "target"},
					"properties": map[string]any{
						"action": map[string]any{"type": "string"},
						"target": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"output_identifier", "landmark_type", "evidence"},
							"properties": map[string]any{
								"output_identifier": map[string]any{"type": "string"},
								"landmark_type": map[string]any{
									"type": "string",
									"enum": []string{"resource", "person", "project", "high_level_project"},
								},
								"evidence": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
	}
}
