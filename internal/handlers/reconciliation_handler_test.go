package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountFieldAcceptsNumbersAndStrings(t *testing.T) {
	var req createSessionRequest
	err := json.Unmarshal([]byte(`{
		"beginning_balance": 1000.5,
		"ending_balance": "1,350.00",
		"statement_balance": null
	}`), &req)
	require.NoError(t, err)

	assert.Equal(t, amountField("1000.5"), req.BeginningBalance)
	assert.Equal(t, amountField("1,350.00"), req.EndingBalance)
	assert.Equal(t, amountField(""), req.StatementBalance)
}

func TestAmountFieldRejectsObjects(t *testing.T) {
	var req createSessionRequest
	assert.Error(t, json.Unmarshal([]byte(`{"beginning_balance": {"value": 1}}`), &req))
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{" 6f1c2f0e-8a43-4a55-9d1e-2b7f3b2b9c11 "})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	_, err = parseIDs([]string{"nope"})
	assert.Error(t, err)
}
