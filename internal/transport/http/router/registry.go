package router

import (
	"sort"

	"bulkbuy-api/internal/transport/http/ez"
)

// Module 资源模块在各自前缀下挂载路由
type Module interface{ Mount(ez.EZ) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

type entry struct {
	prefix string
	mod    Module
}

// Registry 按前缀收集模块，由引擎构造时一次性挂载
type Registry struct {
	entries []entry
}

func (r *Registry) Add(prefix string, m Module) *Registry {
	r.entries = append(r.entries, entry{prefix: prefix, mod: m})
	return r
}

// Prefixes 已注册的前缀，按挂载顺序
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.sorted() {
		out = append(out, e.prefix)
	}
	return out
}

func (r *Registry) sorted() []entry {
	es := append([]entry(nil), r.entries...)
	sort.SliceStable(es, func(i, j int) bool {
		return priorityOf(es[i].mod) < priorityOf(es[j].mod)
	})
	return es
}

// MountAll 在 base 下依次挂载
func (r *Registry) MountAll(base ez.EZ) {
	for _, e := range r.sorted() {
		e.mod.Mount(base.Group(e.prefix))
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
