package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"default", "", 50},
		{"explicit", "limit=10", 10},
		{"max", "limit=100", 100},
		{"over max falls back", "limit=500", 50},
		{"zero falls back", "limit=0", 50},
		{"negative falls back", "limit=-5", 50},
		{"garbage falls back", "limit=abc", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/predictions?"+tt.query, nil)
			assert.Equal(t, tt.want, parseLimit(r))
		})
	}
}

func patientFormRequest(form url.Values) *http.Request {
	r := httptest.NewRequest("POST", "/api/predict", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParsePatientForm(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		info, err := parsePatientForm(patientFormRequest(url.Values{
			"patientId":      {"P-1"},
			"patientName":    {"Ana Diaz"},
			"age":            {"34"},
			"weight":         {"61.5"},
			"gender":         {"female"},
			"symptoms":       {"cough"},
			"medicalHistory": {"asthma"},
		}))
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "P-1", info.PatientID)
		assert.Equal(t, "Ana Diaz", info.PatientName)
		require.NotNil(t, info.Age)
		assert.Equal(t, 34, *info.Age)
		require.NotNil(t, info.Weight)
		assert.Equal(t, 61.5, *info.Weight)
	})

	t.Run("empty form yields nil", func(t *testing.T) {
		info, err := parsePatientForm(patientFormRequest(url.Values{}))
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name string
			form url.Values
		}{
			{"unparseable age", url.Values{"age": {"unknown"}}},
			{"negative age", url.Values{"age": {"-5"}}},
			{"zero weight", url.Values{"weight": {"0"}}},
			{"negative weight", url.Values{"weight": {"-61.5"}}},
			{"unparseable weight", url.Values{"weight": {"heavy"}}},
			{"unknown gender", url.Values{"gender": {"banana"}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				info, err := parsePatientForm(patientFormRequest(tt.form))
				assert.Error(t, err)
				assert.Nil(t, info)
			})
		}
	})

	t.Run("accepts every known gender", func(t *testing.T) {
		for _, g := range []string{"male", "female", "other"} {
			info, err := parsePatientForm(patientFormRequest(url.Values{"gender": {g}}))
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, g, info.Gender)
		}
	})
}

func TestUserLimiter(t *testing.T) {
	t.Run("independent per subject", func(t *testing.T) {
		ul := newUserLimiter(0.001, 1)
		assert.True(t, ul.Allow("alice"))
		assert.False(t, ul.Allow("alice"))
		assert.True(t, ul.Allow("bob"))
	})

	t.Run("defaults applied", func(t *testing.T) {
		ul := newUserLimiter(0, 0)
		for i := 0; i < defaultRateBurst; i++ {
			assert.True(t, ul.Allow("carol"))
		}
	})
}
