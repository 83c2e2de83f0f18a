package listview

import (
	"strings"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// Registry is a content-type snapshot indexed by uid.
type Registry struct {
	items []domain.ContentType
	names map[string]string
}

func NewRegistry(items []domain.ContentType) *Registry {
	names := make(map[string]string, len(items))
	for _, ct := range items {
		if _, dup := names[ct.UID]; !dup {
			names[ct.UID] = ct.DisplayName
		}
	}
	return &Registry{items: items, names: names}
}

func (r *Registry) Lookup(uid string) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.names[uid]
	return name, ok
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// ResolveContentTypeName returns the display name for uid, or "" when the
// registry does not know it.
func ResolveContentTypeName(uid string, registry *Registry) string {
	name, _ := registry.Lookup(uid)
	return name
}

// JoinContentTypeNames resolves each uid in order and joins the results with
// ", ". Unknown uids leave an empty segment.
func JoinContentTypeNames(uids []string, registry *Registry) string {
	names := make([]string, len(uids))
	for i, uid := range uids {
		names[i] = ResolveContentTypeName(uid, registry)
	}
	return strings.Join(names, ", ")
}
