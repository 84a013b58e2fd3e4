package utils

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
)

// EncodeImageBase64 returns the file at path as standard base64, or "" when
// the file cannot be read.
func EncodeImageBase64(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// ImageDataURI wraps EncodeImageBase64 in a data URI; "" when unreadable.
func ImageDataURI(path string) string {
	encoded := EncodeImageBase64(path)
	if encoded == "" {
		return ""
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + encoded
}
