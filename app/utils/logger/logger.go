package logger

import (
	"sync"

	"github.com/sirupsen/logrus"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// GetLogger returns the process-wide logger, configured from LOG_LEVEL on
// first use.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		log = logrus.New()
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		level, err := logrus.ParseLevel(environment_variables.EnvironmentVariables.LOG_LEVEL)
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)
	})
	return log
}
