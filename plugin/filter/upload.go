package filter

import (
	"path/filepath"
	"regexp"

	"github.com/sshlog/agent/event"
)

var uploadTriggers = []event.Kind{event.KindFileUpload}

// UploadFilePath matches event.TargetPath against one expected path,
// comparing both after filepath.Clean. The cleanup is lexical only:
// relative paths are not made absolute and symlinks are not resolved.
type UploadFilePath struct {
	ExpectedPath string
}

func (f UploadFilePath) Triggers() []event.Kind { return uploadTriggers }

func (f UploadFilePath) Filter(evt event.Event) bool {
	return filepath.Clean(f.ExpectedPath) == filepath.Clean(evt.TargetPath)
}

// UploadFilePathRegex matches event.TargetPath against a regular
// expression (upload_file_path_regex_filter).
type UploadFilePathRegex struct {
	Pattern *regexp.Regexp
}

func (f UploadFilePathRegex) Triggers() []event.Kind { return uploadTriggers }

func (f UploadFilePathRegex) Filter(evt event.Event) bool {
	return f.Pattern.MatchString(evt.TargetPath)
}
