package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserInfo_OmitsEmptySecretPath(t *testing.T) {
	data, err := json.Marshal(UserInfo{ID: 1, Username: "alice", Role: "user"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secretPath")
}

func TestConfigDocument_PreservesRawJSON(t *testing.T) {
	var doc ConfigDocument
	require.NoError(t, json.Unmarshal([]byte(`{"config":{"sync":{"enabled":true},"unknownKey":1}}`), &doc))

	// Unknown engine-side keys must survive untouched
	assert.JSONEq(t, `{"sync":{"enabled":true},"unknownKey":1}`, string(doc.Config))
}
