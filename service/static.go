package service

import (
	"path/filepath"
	"strings"
)

// ToFileURL 把静态根目录下的本地路径映射为稳定的 /files/... 相对 URL。
// 不在静态根目录下的路径原样返回（正斜杠形式）。
func ToFileURL(staticRoot, path string) string {
	if path == "" {
		return ""
	}
	absRoot, err := filepath.Abs(staticRoot)
	if err != nil {
		return filepath.ToSlash(path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(absPath)
	}
	return "/files/" + filepath.ToSlash(rel)
}
