package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNopJudge(t *testing.T) {
	review, err := NopJudge{}.Review(context.Background(), map[string]string{"alpha": "...", "beta": "..."})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"alpha": 0, "beta": 0}, review.Scores)
	assert.NotEmpty(t, review.Narrative)
}

func TestHTTPJudge_ClampsScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["transcripts"], "alpha")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Review{
			Scores:    map[string]float64{"alpha": 1.5, "beta": -0.2},
			Narrative: "mixed field",
		})
	}))
	defer server.Close()

	j := NewHTTPJudge(server.URL, zap.NewNop())
	review, err := j.Review(context.Background(), map[string]string{"alpha": "solid reasoning", "beta": "none"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, review.Scores["alpha"])
	assert.Equal(t, 0.0, review.Scores["beta"])
	assert.Equal(t, "mixed field", review.Narrative)
}

func TestHTTPJudge_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	j := NewHTTPJudge(server.URL, zap.NewNop())
	_, err := j.Review(context.Background(), map[string]string{"alpha": "x"})
	assert.Error(t, err)
}
