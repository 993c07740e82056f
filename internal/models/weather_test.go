package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertKeepsProviderFields(t *testing.T) {
	in := `{"sender_name":"NWS","event":"Flood Warning","start":1760700000,"end":1760710000,
		"description":"River flooding","tags":["Flood"],"severity":"moderate","areas":["Kings County"]}`

	var alert Alert
	require.NoError(t, json.Unmarshal([]byte(in), &alert))
	assert.Equal(t, "Flood Warning", alert.Event)
	assert.Equal(t, []string{"Flood"}, alert.Tags)

	out, err := json.Marshal([]Alert{alert})
	require.NoError(t, err)
	assert.JSONEq(t, "["+in+"]", string(out))
}

func TestAlertWithoutProviderObject(t *testing.T) {
	out, err := json.Marshal(Alert{SenderName: "NWS", Event: "Wind", Tags: []string{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sender_name":"NWS","event":"Wind","start":0,"end":0,"description":"","tags":[]}`, string(out))
}
