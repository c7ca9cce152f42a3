package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RewriteDocument adapts a downstream OpenAPI document to the gateway: every path
// key gets prefix and every server URL becomes serverURL. A blank document is
// returned unchanged.
func RewriteDocument(raw []byte, prefix, serverURL string) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("gateway: decode document: %w", err)
	}

	if paths, ok := doc["paths"].(map[string]any); ok && prefix != "" {
		prefixed := make(map[string]any, len(paths))
		for k, v := range paths {
			prefixed[prefix+k] = v
		}
		doc["paths"] = prefixed
	}

	if servers, ok := doc["servers"].([]any); ok {
		for _, s := range servers {
			if server, ok := s.(map[string]any); ok {
				server["url"] = serverURL
			}
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode document: %w", err)
	}
	return out, nil
}
