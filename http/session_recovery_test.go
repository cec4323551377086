package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vwlab/ml"
	"vwlab/vw"
)

// slowVW answers its first example after a second and every later one at once.
const slowVW = `#!/bin/sh
first=1
while IFS= read -r line; do
  if [ "$first" = 1 ]; then
    first=0
    sleep 1
    echo "0.9"
  else
    echo "0.25"
  fi
done
`

func TestPredictAfterTimedOutRequest(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake vw needs a POSIX shell")
	}
	binary := filepath.Join(t.TempDir(), "vw")
	require.NoError(t, os.WriteFile(binary, []byte(slowVW), 0o755))

	env := newTestEnv(t, func(ctx context.Context) (ml.Learner, error) {
		return vw.Open(ctx, vw.Options{Binary: binary, TestOnly: true}, nil)
	})
	require.NoError(t, env.service.Reload(context.Background()))
	// Routes only; the timeout middleware would answer 503 itself.
	mux := http.NewServeMux()
	env.service.RegisterHandlers(mux)

	body := `{"id":"late","author":"Shanno","text":"Lorem ipsum","year":2019}`

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)).WithContext(ctx)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)

	// The session stays usable; the reply owed to the first request is dropped.
	req = httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 0.25, resp.Prediction)
	assert.True(t, env.service.Loaded())
}
