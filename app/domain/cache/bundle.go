package cache

const bundleDataType = "bundle"

// CacheBundle stores one composite fetch result twice: whole, under a bundle
// key, and fanned out into per-field entries under their own hierarchical
// keys. A later individual-field request then hits even if only the bundle
// was ever fetched.
func (s *CacheService) CacheBundle(bundleKey string, bundle map[string]any, scopeID, subScopeID string) bool {
	ok := s.Set(BuildKey(bundleDataType, scopeID, subScopeID, bundleKey), bundle, bundleDataType, bundleDataType)
	for field, value := range bundle {
		if !s.Set(BuildKey(field, scopeID, subScopeID, "data"), value, field, field) {
			ok = false
		}
	}
	return ok
}

// GetBundle returns the whole composite result cached by CacheBundle.
func (s *CacheService) GetBundle(bundleKey, scopeID, subScopeID string) (map[string]any, bool) {
	value, ok := s.Get(BuildKey(bundleDataType, scopeID, subScopeID, bundleKey))
	if !ok {
		return nil, false
	}
	bundle, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	return bundle, true
}
