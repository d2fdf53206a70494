package domain

import "encoding/json"

// UserSummary 关联用户的展开形态
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar"`
}

type refKind uint8

const (
	refID refKind = iota
	refExpanded
)

// UserRef 关联用户：要么只有 ID，要么已展开为 UserSummary
type UserRef struct {
	kind refKind
	id   string
	user UserSummary
}

func RefID(id string) UserRef { return UserRef{kind: refID, id: id} }

func RefExpanded(s UserSummary) UserRef { return UserRef{kind: refExpanded, id: s.ID, user: s} }

func (r UserRef) ID() string { return r.id }

func (r UserRef) Expanded() (UserSummary, bool) {
	if r.kind == refExpanded {
		return r.user, true
	}
	return UserSummary{}, false
}

// Resolve 用 lookup 展开；查不到的引用保留为仅含 ID 的摘要
func (r UserRef) Resolve(lookup map[string]UserSummary) UserSummary {
	if s, ok := r.Expanded(); ok {
		return s
	}
	if s, ok := lookup[r.id]; ok {
		return s
	}
	return UserSummary{ID: r.id}
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if s, ok := r.Expanded(); ok {
		return json.Marshal(s)
	}
	return json.Marshal(UserSummary{ID: r.id})
}

func RefIDs(ids []string) []UserRef {
	out := make([]UserRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, RefID(id))
	}
	return out
}
