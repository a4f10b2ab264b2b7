package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// buildObjectPath 生成对象键：<分类>/<年>/<月>/<日>/<文件名>.<扩展名>。
// 分类为空时落到 misc，文件名为空时用纳秒时间戳兜底。
func buildObjectPath(category, baseName, ext string) string {
	now := time.Now().UTC()

	category = sanitizePathSegment(category)
	if category == "" {
		category = "misc"
	}

	base := sanitizeFileBase(baseName)
	if base == "" {
		base = fmt.Sprintf("%d", now.UnixNano())
	}

	datedir := fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day())
	return path.Join(category, datedir, base+"."+normalizeExtension(ext))
}

// sanitizePathSegment 只保留小写字母、数字、短横线和下划线，大写转小写。
func sanitizePathSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			builder.WriteByte(ch)
		case ch >= 'A' && ch <= 'Z':
			builder.WriteByte(ch + 32)
		case ch == '-', ch == '_':
			builder.WriteByte(ch)
		}
	}
	return builder.String()
}

// sanitizeFileBase 清洗文件名主体，空格转短横线并去掉首尾分隔符。
func sanitizeFileBase(value string) string {
	replaced := strings.ReplaceAll(strings.TrimSpace(value), " ", "-")
	return strings.Trim(sanitizePathSegment(replaced), "-_")
}

// normalizeExtension 去掉前导点并清洗扩展名，空扩展名落到 bin。
func normalizeExtension(ext string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if trimmed == "" {
		return "bin"
	}
	return sanitizePathSegment(trimmed)
}

// detectContentType 按扩展名推断 MIME 类型，未知时回退到二进制流。
func detectContentType(ext string) string {
	typeName := mime.TypeByExtension("." + normalizeExtension(ext))
	if typeName == "" {
		return "application/octet-stream"
	}
	return typeName
}

// joinPrefix 把配置的对象键前缀拼到键前面。
func joinPrefix(prefix, key string) string {
	cleanPrefix := trimPrefix(prefix)
	key = strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return key
	}
	return path.Join(cleanPrefix, key)
}

// trimPrefix 去掉前缀两侧的空白和斜杠。
func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
