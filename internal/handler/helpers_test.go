package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

// decodeBody unmarshals a recorded JSON response into out
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
