package inference

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
	"github.com/faizdevx/CrashNet/internal/model"
)

func newTestRouter(t *testing.T) (*model.Store, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := model.NewStore(filepath.Join(t.TempDir(), "model.json"), time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	r := gin.New()
	NewHandler(store, zap.NewNop()).Register(r)
	return store, r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestInferEndpointAnswersOnFreshModel(t *testing.T) {
	_, r := newTestRouter(t)

	w := do(r, http.MethodPost, "/infer", `{"speed":0,"accel":0,"gyro":0,"distance":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result domain.Classification
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Accident {
		t.Errorf("fresh model flagged the zero vector: %+v", result)
	}
}

func TestInferEndpointRejectsMalformedBody(t *testing.T) {
	_, r := newTestRouter(t)

	w := do(r, http.MethodPost, "/infer", `{"speed":"fast"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInferEndpointRejectsMissingFeature(t *testing.T) {
	_, r := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"no speed", `{"accel":-6.5,"gyro":0.1,"distance":1.0}`},
		{"no accel", `{"speed":40,"gyro":0.1,"distance":1.0}`},
		{"nan gyro", `{"speed":40,"accel":-6.5,"gyro":"NaN","distance":1.0}`},
	}
	for _, tc := range cases {
		w := do(r, http.MethodPost, "/infer", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400: %s", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestTrainEndpointAcceptsLabelledExample(t *testing.T) {
	_, r := newTestRouter(t)

	w := do(r, http.MethodPost, "/train", `{"speed":35,"accel":-5,"gyro":0.1,"distance":2,"label":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `{"status":"trained"}` {
		t.Errorf("body = %s, want {\"status\":\"trained\"}", got)
	}
}

func TestTrainEndpointRejectsBadLabel(t *testing.T) {
	store, r := newTestRouter(t)

	sample := domain.FeatureVector{10, -1, 0, 5}
	before := store.Infer(sample)

	w := do(r, http.MethodPost, "/train", `{"speed":10,"accel":-1,"gyro":0,"distance":5,"label":3}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}

	if after := store.Infer(sample); after != before {
		t.Errorf("rejected training call changed the model: %+v -> %+v", before, after)
	}
}

func TestResetEndpointRestoresSeededState(t *testing.T) {
	store, r := newTestRouter(t)

	for i := 0; i < 50; i++ {
		do(r, http.MethodPost, "/train", `{"speed":35,"accel":-5,"gyro":0.1,"distance":2,"label":1}`)
	}

	w := do(r, http.MethodPost, "/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"status":"reset"}` {
		t.Errorf("body = %s, want {\"status\":\"reset\"}", got)
	}

	result := store.Infer(domain.FeatureVector{})
	if result.Accident {
		t.Errorf("post-reset model flags the zero vector: %+v", result)
	}
}

func TestHealthReportsModelLoaded(t *testing.T) {
	store, r := newTestRouter(t)

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Status      string `json:"status"`
		ModelLoaded bool   `json:"model_loaded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.ModelLoaded {
		t.Errorf("health = %+v, want ok with no snapshot yet", resp)
	}

	if err := store.Snapshot(); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	w = do(r, http.MethodGet, "/health", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.ModelLoaded {
		t.Error("model_loaded = false after a snapshot was written")
	}
}
