package util

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型，按内容嗅探而非扩展名
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "application/pdf", "text/"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// AllowedAttachmentTypes 作业附件允许的类型：文档、压缩包、图片和纯文本
var AllowedAttachmentTypes = []string{
	MimePDF,
	MimeOctetStream,
	"application/zip",
	"application/x-rar-compressed",
	"application/msword",
	"application/vnd.openxmlformats-officedocument",
	"text/",
	"image/",
}
