package rx

import "github.com/sirupsen/logrus"

func defaultLogger() logrus.FieldLogger {
	return logrus.StandardLogger().WithField("component", "rx")
}
