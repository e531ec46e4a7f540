package log

import (
	"io"

	"github.com/bassosimone/errclass"
	"github.com/sirupsen/logrus"
)

const (
	FieldSpan       = "span"
	FieldError      = "error"
	FieldErrorClass = "error_class"
)

func ErrorFields(err error) logrus.Fields {
	if err == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{
		FieldError:      err.Error(),
		FieldErrorClass: errclass.New(err),
	}
}

// Discard returns a logger that drops everything, for callers that do not configure one.
func Discard() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
