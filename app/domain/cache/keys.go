package cache

import "strings"

// BuildKey produces the hierarchical cache key
// "dataType:scopeId:subScopeId:qualifier". Callers must build keys through
// this function; a fabricated format is treated as an opaque string and will
// not group correctly under namespace invalidation.
func BuildKey(dataType, scopeID, subScopeID, qualifier string) string {
	return strings.Join([]string{dataType, scopeID, subScopeID, qualifier}, ":")
}

// RefreshKey is the cache key for a registered UI component's refresh result.
func RefreshKey(componentKey string) string {
	return "refresh:" + componentKey
}
