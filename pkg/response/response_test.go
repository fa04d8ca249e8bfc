package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	b, err := json.Marshal(Success(200, map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","status_code":200,"data":{"n":1}}`, string(b))

	b, err = json.Marshal(Error(404, "not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":404,"error":"not found"}`, string(b))

	b, err = json.Marshal(Failure(504, map[string]string{"reason": "timeout"}, "timed out"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":504,"data":{"reason":"timeout"},"error":"timed out"}`, string(b))
}
