package chunker

// Payload converts a chunk into the flat map stored alongside its
// embedding in the vector store.
func (c Chunk) Payload() map[string]any {
	return map[string]any{
		"filePath":  c.FilePath,
		"startLine": c.StartLine,
		"endLine":   c.EndLine,
		"code":      c.Code,
	}
}

// FromPayload rebuilds a chunk from a vector store payload. Numeric
// fields may arrive as any integer or float type depending on the
// driver's deserialization.
func FromPayload(payload map[string]any) (Chunk, bool) {
	filePath, ok := payload["filePath"].(string)
	if !ok {
		return Chunk{}, false
	}
	code, ok := payload["code"].(string)
	if !ok {
		return Chunk{}, false
	}

	startLine, ok := toInt(payload["startLine"])
	if !ok {
		return Chunk{}, false
	}
	endLine, ok := toInt(payload["endLine"])
	if !ok {
		return Chunk{}, false
	}

	return Chunk{
		FilePath:  filePath,
		StartLine: startLine,
		EndLine:   endLine,
		Code:      code,
	}, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
