package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Decode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantZero bool
		wantMs   int64
	}{
		{"rfc3339 with zone", `"2024-05-01T10:00:00Z"`, false, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli()},
		{"iso without zone", `"2024-05-01T10:00:00.250000"`, false, time.Date(2024, 5, 1, 10, 0, 0, 250_000_000, time.UTC).UnixMilli()},
		{"garbage", `"yesterday"`, true, -1},
		{"not a string", `12`, true, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.input), &ts))
			assert.Equal(t, tc.wantZero, ts.IsZero())
			assert.Equal(t, tc.wantMs, ts.UnixMilli())
		})
	}
}

func TestSession_DecodeKeepsOrderAndOpenMaps(t *testing.T) {
	payload := `{
		"session_id": "s1",
		"user_id": "u1",
		"created_at": "2024-05-01T10:00:00Z",
		"updated_at": "2024-05-01T10:01:00Z",
		"messages": [
			{"role": "user", "content": "hi", "timestamp": "2024-05-01T10:00:30Z"},
			{"role": "assistant", "content": "yo", "timestamp": "2024-05-01T10:00:31Z", "model_used": "gpt", "metadata": {"tokens": 3}}
		],
		"metadata": {"source": "web", "nested": {"a": [1, 2]}}
	}`

	var s Session
	require.NoError(t, json.Unmarshal([]byte(payload), &s))
	require.Len(t, s.Messages, 2)
	assert.Equal(t, RoleUser, s.Messages[0].Role)
	assert.Equal(t, "yo", s.Messages[1].Content)
	assert.Equal(t, "gpt", s.Messages[1].ModelUsed)
	assert.Equal(t, "web", s.Metadata["source"])
	assert.Contains(t, s.Metadata, "nested")
}

func TestTimestamp_RoundTripRaw(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:00:00.250000"`), &ts))
	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-05-01T10:00:00.250000"`, string(out))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada", (&User{Name: "Ada", Email: "ada@example.com"}).DisplayName())
	assert.Equal(t, "ada@example.com", (&User{Email: "ada@example.com"}).DisplayName())
	var nilUser *User
	assert.Equal(t, "", nilUser.DisplayName())
}

func TestCredential_Valid(t *testing.T) {
	assert.False(t, Credential{}.Valid())
	assert.False(t, Credential{Token: "t"}.Valid())
	assert.True(t, Credential{Token: "t", User: &User{UserID: "u"}}.Valid())
}
