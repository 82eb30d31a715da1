package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chrono/internal/core/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHTTPClient_CreateSession(t *testing.T) {
	var got model.ResearchRequest
	r := gin.New()
	r.POST("/api/research", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&got))
		c.JSON(http.StatusOK, model.ResearchProposalResponse{
			SessionID: "s-1",
			Proposal: model.ResearchProposal{
				Topic:           got.Topic,
				ResearchThreads: []model.ResearchThread{{Name: "Hardware"}},
			},
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second, "", nil)
	resp, err := c.CreateSession(context.Background(), model.ResearchRequest{Topic: "  iPhone  "})
	require.NoError(t, err)

	assert.Equal(t, "iPhone", got.Topic)
	assert.Equal(t, model.DefaultLanguage, got.Language)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, "Hardware", resp.Proposal.ResearchThreads[0].Name)
}

func TestHTTPClient_EmptyTopic(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", time.Second, "en", nil)
	_, err := c.CreateSession(context.Background(), model.ResearchRequest{Topic: " "})
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestHTTPClient_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		wantCode string
		wantMsg  string
	}{
		{
			name:     "nested detail",
			status:   http.StatusBadGateway,
			body:     gin.H{"detail": gin.H{"error": "llm_service_unavailable", "message": "try again"}},
			wantCode: "llm_service_unavailable",
			wantMsg:  "try again",
		},
		{
			name:    "string detail",
			status:  http.StatusUnprocessableEntity,
			body:    gin.H{"detail": "topic too long"},
			wantMsg: "topic too long",
		},
		{
			name:     "flat body",
			status:   http.StatusServiceUnavailable,
			body:     gin.H{"error": "busy", "message": "later"},
			wantCode: "busy",
			wantMsg:  "later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, time.Second, "en", nil)
			_, err := c.CreateSession(context.Background(), model.ResearchRequest{Topic: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrServiceUnavailable)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestHTTPClient_MissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"proposal":{}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, "en", nil)
	_, err := c.CreateSession(context.Background(), model.ResearchRequest{Topic: "x"})
	assert.ErrorContains(t, err, "missing session_id")
}
