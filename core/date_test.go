package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Day Date `json:"day"`
	}

	data, err := json.Marshal(payload{Day: NewDate(2024, time.February, 29)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-02-29"}`, string(data))

	data, err = json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":null}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-06-30"}`), &p))
	assert.Equal(t, NewDate(2024, time.June, 30), p.Day)

	require.NoError(t, json.Unmarshal([]byte(`{"day":""}`), &p))
	assert.True(t, p.Day.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"day":"30/06/2024"}`), &p))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-04-02")))
	assert.Equal(t, NewDate(2024, time.April, 2), d)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDate_compare(t *testing.T) {
	jan, feb := NewDate(2024, time.January, 1), NewDate(2024, time.February, 1)
	assert.True(t, feb.After(jan))
	assert.True(t, jan.Before(feb))
	assert.False(t, jan.After(jan))
	assert.Equal(t, Today(), DateOf(time.Now().UTC()))
}

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "450", want: "450.00"},
		{in: "125.555", want: "125.56"},
		{in: "125.554", want: "125.55"},
		{in: "-0.005", want: "-0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundMoney(decimal.RequireFromString(tt.in)).StringFixed(MoneyPlaces))
		})
	}
	assert.True(t, MoneyEqual(decimal.RequireFromString("450"), decimal.RequireFromString("450.001")))
}
