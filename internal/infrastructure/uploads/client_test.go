package uploads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewClient(config.UploadsConfig{
		BaseURL: server.URL,
		Preset:  "ops-dashboard",
	}, logger)
}

func TestUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "ops-dashboard", r.FormValue("upload_preset"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/report.pdf","public_id":"report"}`))
	})

	result, err := client.Upload(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/report.pdf", result.URL)
	assert.Equal(t, "report", result.ID)
}

func TestUpload_RejectedByService(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid preset", http.StatusBadRequest)
	})

	_, err := client.Upload(context.Background(), "report.pdf", strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestUploadAll_ContinuesPastFailures(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/ok","public_id":"ok"}`))
	})

	batch := client.UploadAll(context.Background(), []FileUpload{
		{Name: "a.png", Reader: strings.NewReader("a")},
		{Name: "b.png", Reader: strings.NewReader("b")},
		{Name: "c.png", Reader: strings.NewReader("c")},
	})

	assert.Len(t, batch.Uploaded, 2)
	assert.Equal(t, []string{"b.png"}, batch.Failed)
}
