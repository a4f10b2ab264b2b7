// Package permission maps inbound requests to the permission code required to
// execute them. Codes use the dotted module.action form (e.g. "sample.create").
//
// Associations are declared at route-registration time through a Registry so
// the mapping cannot drift from the actual route table. Lookup misses are
// treated as allow: routes registered without a code are deliberately open.
package permission

import (
	"regexp"
	"strings"
	"sync"
)

var (
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	numericSegment = regexp.MustCompile(`^[0-9]+$`)
)

// NormalizePath 去掉查询串并把 UUID 或纯数字路径段替换为 :id 占位符，
// 使 /api/samples/42 和 /api/samples/550e8400-... 归一到同一个键。
//
// UUID 先于数字匹配；一个段不可能同时命中两种模式，顺序只为保证确定性。
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if uuidSegment.MatchString(segment) {
			segments[i] = ":id"
			continue
		}
		if numericSegment.MatchString(segment) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// Registry 保存 "<METHOD> <normalizedPath>" 到权限代码的映射。
//
// 写入只发生在启动阶段的路由注册，之后对并发请求只读。
type Registry struct {
	mu    sync.RWMutex
	codes map[string]string
}

// NewRegistry 创建空的权限注册表。
func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]string)}
}

// Register 将路由模式与权限代码关联。pattern 中的参数段使用 :id 占位符，
// 与 NormalizePath 的输出保持一致。code 为空表示该路由显式放开。
func (r *Registry) Register(method, pattern, code string) {
	if r == nil {
		return
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	r.mu.Lock()
	r.codes[key(method, NormalizePath(pattern))] = code
	r.mu.Unlock()
}

// Required 返回请求所需的权限代码；没有映射时 ok 为 false。
func (r *Registry) Required(method, path string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	code, ok := r.codes[key(method, NormalizePath(path))]
	r.mu.RUnlock()
	return code, ok
}

// Allowed 判断持有 perms 的调用者能否访问 method+path。
//
// 未注册映射的路由默认放行：规则缺失不等于拒绝，这是有意保留的策略，
// 配合注册期关联使得"忘记声明"必须是显式的选择。
func (r *Registry) Allowed(perms []string, method, path string) bool {
	code, ok := r.Required(method, path)
	if !ok {
		return true
	}
	return Has(perms, code)
}

// Has 检查权限集合是否包含指定代码。
func Has(perms []string, code string) bool {
	for _, p := range perms {
		if p == code {
			return true
		}
	}
	return false
}

func key(method, normalizedPath string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + normalizedPath
}
