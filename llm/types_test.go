package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityFromDistance(t *testing.T) {
	assert.InDelta(t, 0.8, SimilarityFromDistance(0.2), 1e-9)
	assert.Equal(t, 0.0, SimilarityFromDistance(1.0))
	assert.Equal(t, 0.0, SimilarityFromDistance(1.7))
	assert.Equal(t, 1.0, SimilarityFromDistance(-0.1))
}

func TestConversationTurnLegacyKeys(t *testing.T) {
	var turn ConversationTurn
	require.NoError(t, json.Unmarshal([]byte(`{"user query":"hi","AI_response":"Hello!"}`), &turn))
	assert.Equal(t, "hi", turn.UserQuery)
	assert.Equal(t, "Hello!", turn.AssistantResponse)
}
