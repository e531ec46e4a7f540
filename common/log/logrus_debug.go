//go:build debug

package log

import (
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Debug builds log everything with the caller position relative to the module root.
func init() {
	_, file, _, _ := runtime.Caller(0)
	moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(file)))
	logrus.SetLevel(logrus.TraceLevel)
	logrus.SetReportCaller(true)
	formatter, isText := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	if !isText {
		return
	}
	formatter.CallerPrettyfier = func(frame *runtime.Frame) (string, string) {
		path, err := filepath.Rel(moduleRoot, frame.File)
		if err != nil {
			path = frame.File
		}
		return "", " " + path + ":" + strconv.Itoa(frame.Line)
	}
}
