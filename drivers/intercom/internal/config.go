package driver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
	"github.com/spf13/viper"
)

// Config holds the Intercom source configuration
type Config struct {
	AccessToken        string         `json:"access_token" validate:"required"`
	StartDate          typeutils.Time `json:"start_date" validate:"required"`
	UserAgent          string         `json:"user_agent,omitempty"`
	RequestTimeout     Seconds        `json:"request_timeout,omitempty"`
	BaseURL            string         `json:"base_url,omitempty" validate:"omitempty,url"`
	PageSize           int            `json:"page_size,omitempty" validate:"omitempty,min=1,max=150"`
	CheckpointInterval int            `json:"checkpoint_interval,omitempty" validate:"omitempty,min=1"`
	ContinueOnError    bool           `json:"continue_on_error,omitempty"`
	RateLimit          int            `json:"rate_limit,omitempty" validate:"omitempty,min=1"`
}

// Seconds accepts a JSON number or a numeric string
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	str := strings.TrimSpace(strings.Trim(string(b), "\""))
	if str == "" || str == "null" {
		*s = 0
		return nil
	}

	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("invalid request_timeout[%s]: must be a number of seconds", str)
	}

	*s = Seconds(value)
	return nil
}

func (c *Config) Validate() error {
	// environment overrides the token written in the config file
	if token := viper.GetString(constants.AccessToken); token != "" {
		c.AccessToken = token
	}

	if err := utils.Validate(c); err != nil {
		return err
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}

	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %s", err)
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	c.PageSize = utils.Ternary(c.PageSize == 0, constants.MaxPageSize, c.PageSize).(int)
	c.CheckpointInterval = utils.Ternary(c.CheckpointInterval == 0, 1, c.CheckpointInterval).(int)
	c.RateLimit = utils.Ternary(c.RateLimit == 0, constants.DefaultRateLimit, c.RateLimit).(int)

	return nil
}

// Timeout returns the per request timeout, zero means the default
func (c *Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return constants.DefaultRequestTimeout
	}
	return time.Duration(float64(c.RequestTimeout) * float64(time.Second))
}
