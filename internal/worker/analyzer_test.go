package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzePreview_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "empty body", status: http.StatusOK},
		{name: "not mp3", status: http.StatusOK, body: []byte("definitely not an mp3 stream")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			client := &http.Client{}
			defer client.CloseIdleConnections()

			_, err := analyzePreview(context.Background(), client, srv.URL)
			assert.Error(t, err)
		})
	}
}

func TestEnergyFromRMS(t *testing.T) {
	assert.Equal(t, 0.0, energyFromRMS(0))
	assert.InDelta(t, 0.5, energyFromRMS(16384), 1e-9)
	assert.Equal(t, 1.0, energyFromRMS(40000))
}
