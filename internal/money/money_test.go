package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse(" -4.50 ")
	require.NoError(t, err)
	assert.Equal(t, "-4.50", Format(d))

	d, err = Parse("1000")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", Format(d))

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("row")
	assert.Error(t, err)

	d, err = Parse("4.500")
	require.NoError(t, err)
	assert.Equal(t, "4.50", Format(d))
}

func TestParseRejectsSubCentAmounts(t *testing.T) {
	_, err := Parse("-4.505")
	assert.Error(t, err)

	_, err = Parse("0.001")
	assert.Error(t, err)
}

func TestAmountJSONKeepsTwoPlaces(t *testing.T) {
	out, err := json.Marshal(struct {
		Balance Amount `json:"balance"`
		Amount  Amount `json:"amount"`
		Zero    Amount `json:"zero"`
	}{
		Balance: NewAmount(decimal.RequireFromString("1000")),
		Amount:  NewAmount(decimal.RequireFromString("-4.5")),
		Zero:    Amount{},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"1000.00","amount":"-4.50","zero":"0.00"}`, string(out))

	var back struct {
		Balance Amount `json:"balance"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"balance":"1350.00"}`), &back))
	assert.True(t, back.Balance.Equal(decimal.RequireFromString("1350")))
}

func TestSumAvoidsFloatDrift(t *testing.T) {
	values := make([]decimal.Decimal, 0, 10)
	for i := 0; i < 10; i++ {
		values = append(values, decimal.RequireFromString("0.10"))
	}
	assert.Equal(t, "1.00", Format(Sum(values...)))
}
