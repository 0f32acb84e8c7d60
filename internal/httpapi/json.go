package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxConfigBodySize bounds the POST /config request body the same way
// scanconfig bounds the file it gets written to.
const maxConfigBodySize = 1 * 1024 * 1024

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
