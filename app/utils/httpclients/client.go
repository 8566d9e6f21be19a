package httpclients

import (
	"time"

	"resty.dev/v3"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

const defaultTimeout = 30 * time.Second

// NewClient creates a named resty client with shared defaults.
func NewClient(name string) *resty.Client {
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(2).
		SetHeader("User-Agent", name)
	client.SetLogger(logger.GetLogger())
	return client
}
