package envfile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdatesPreserveDocumentOrder(t *testing.T) {
	payload := `{"ZULU":"1","ALPHA":"2","MIKE":"3"}`

	var u Updates
	require.NoError(t, json.Unmarshal([]byte(payload), &u))
	require.Equal(t, Updates{
		{Key: "ZULU", Value: "1"},
		{Key: "ALPHA", Value: "2"},
		{Key: "MIKE", Value: "3"},
	}, u)
	require.Equal(t, []string{"ZULU", "ALPHA", "MIKE"}, u.Keys())
}

func TestUpdatesCoerceScalars(t *testing.T) {
	payload := `{"PORT":9090,"MASK_SECRETS":true,"SERVICES":null,"BIND_HOST":"0.0.0.0","RATIO":0.5}`

	var u Updates
	require.NoError(t, json.Unmarshal([]byte(payload), &u))
	require.Equal(t, Updates{
		{Key: "PORT", Value: "9090"},
		{Key: "MASK_SECRETS", Value: "true"},
		{Key: "SERVICES", Value: ""},
		{Key: "BIND_HOST", Value: "0.0.0.0"},
		{Key: "RATIO", Value: "0.5"},
	}, u)
}

func TestUpdatesRejectNestedValues(t *testing.T) {
	var u Updates
	err := json.Unmarshal([]byte(`{"PORT":{"nested":true}}`), &u)
	require.Error(t, err)
	require.Contains(t, err.Error(), "scalar")

	err = json.Unmarshal([]byte(`{"PORT":[1,2]}`), &u)
	require.Error(t, err)
}

func TestUpdatesRejectNonObjectPayload(t *testing.T) {
	var u Updates
	require.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &u))
	require.Error(t, json.Unmarshal([]byte(`"PORT=9090"`), &u))
}

func TestUpdatesEmptyObject(t *testing.T) {
	var u Updates
	require.NoError(t, json.Unmarshal([]byte(`{}`), &u))
	require.Empty(t, u)
}
