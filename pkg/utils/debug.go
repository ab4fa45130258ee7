package utils

import (
	"fmt"
	"runtime"
	"strings"
)

// moduleRoot is stripped from caller paths so log locations read pkg/..., service-.../...
var moduleRoot = func() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return strings.TrimSuffix(file, "pkg/utils/debug.go")
}()

// GetFileAndLoC returns the module relative file and line of the caller, skip frames up
func GetFileAndLoC(skip int) string {
	_, file, line, ok := runtime.Caller(1 + skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", strings.TrimPrefix(file, moduleRoot), line)
}
