package storage

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// ContentTypesByExtension lists the spreadsheet formats accepted for import.
var ContentTypesByExtension = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".txt":  "text/plain",
}

// ContentTypeFor returns the content type stored for filename.
func ContentTypeFor(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := ContentTypesByExtension[ext]
	if !ok {
		return "", fmt.Errorf("file extension %q is not allowed", ext)
	}
	return contentType, nil
}

// ValidateFileSize checks if the file size is within limits. A zero limit
// disables the upper bound.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize)
	}
	return nil
}

// AllowedExtensions returns the accepted file extensions, sorted.
// Useful for frontend validation.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(ContentTypesByExtension))
	for ext := range ContentTypesByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
