package driver

import (
	"testing"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseConfig(t *testing.T, raw string) *Config {
	t.Helper()
	config := &Config{}
	require.NoError(t, json.Unmarshal([]byte(raw), config))
	return config
}

func TestConfigDefaults(t *testing.T) {
	config := parseConfig(t, `{"access_token": "token", "start_date": "2021-01-01T00:00:00Z"}`)
	require.NoError(t, config.Validate())

	assert.Equal(t, constants.DefaultBaseURL, config.BaseURL)
	assert.Equal(t, constants.MaxPageSize, config.PageSize)
	assert.Equal(t, 1, config.CheckpointInterval)
	assert.Equal(t, constants.DefaultRateLimit, config.RateLimit)
	assert.Equal(t, constants.DefaultRequestTimeout, config.Timeout())
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), config.StartDate.UTC())
}

func TestConfigRequestTimeout(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected time.Duration
	}{
		{name: "number", raw: `12.5`, expected: 12500 * time.Millisecond},
		{name: "numeric string", raw: `"30"`, expected: 30 * time.Second},
		{name: "empty string", raw: `""`, expected: constants.DefaultRequestTimeout},
		{name: "zero", raw: `0`, expected: constants.DefaultRequestTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := parseConfig(t, `{"access_token": "token", "start_date": "2021-01-01", "request_timeout": `+tc.raw+`}`)
			require.NoError(t, config.Validate())
			assert.Equal(t, tc.expected, config.Timeout())
		})
	}

	config := &Config{}
	assert.Error(t, json.Unmarshal([]byte(`{"request_timeout": "soon"}`), config))
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing token", raw: `{"start_date": "2021-01-01"}`},
		{name: "missing start date", raw: `{"access_token": "token"}`},
		{name: "negative timeout", raw: `{"access_token": "token", "start_date": "2021-01-01", "request_timeout": -1}`},
		{name: "page size above limit", raw: `{"access_token": "token", "start_date": "2021-01-01", "page_size": 151}`},
		{name: "invalid base url", raw: `{"access_token": "token", "start_date": "2021-01-01", "base_url": "not a url"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, parseConfig(t, tc.raw).Validate())
		})
	}
}

func TestConfigTokenFromEnvironment(t *testing.T) {
	viper.Set(constants.AccessToken, "from-env")
	t.Cleanup(func() { viper.Set(constants.AccessToken, "") })

	config := parseConfig(t, `{"start_date": "2021-01-01", "base_url": "https://api.eu.intercom.io/"}`)
	require.NoError(t, config.Validate())
	assert.Equal(t, "from-env", config.AccessToken)
	assert.Equal(t, "https://api.eu.intercom.io", config.BaseURL)
}
