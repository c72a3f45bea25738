package cache

import (
	"net/url"
	"strconv"
	"strings"

	formversion "github.com/goliatone/go-formversion"
)

const (
	activeMergedFormKey  = "active-merged-form"
	privateMergedFormKey = "private-merged-form"
	mergedFormKey        = "merged-form"
	mergedFormPagesKey   = "merged-form-pages"

	keySeparator = ":"
)

// key joins a namespace and escaped components. Escaping keeps a ':' inside
// a template name from being read as a segment boundary.
func key(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		b.WriteString(keySeparator)
		b.WriteString(url.QueryEscape(part))
	}
	return b.String()
}

// ActiveMergedFormKey is the key of the active template of an EHC.
func ActiveMergedFormKey(ehcName string) string {
	return key(activeMergedFormKey, ehcName)
}

// PrivateMergedFormKey is the key of a private template of an EHC.
func PrivateMergedFormKey(ehcName, privateCode string) string {
	return key(privateMergedFormKey, ehcName, privateCode)
}

// MergedFormKey is the key of one EHC+EXA pair.
func MergedFormKey(ehc, exa formversion.NameAndVersion) string {
	return key(mergedFormKey, ehc.Name, ehc.Version, exa.Name, exa.Version)
}

// MergedFormPagesKey is the key of the pages of one EHC+EXA pair as seen by
// a role set. Roles are sorted so the key does not depend on their order.
func MergedFormPagesKey(query formversion.PageQuery) string {
	return key(mergedFormPagesKey,
		query.EHC.Name, query.EHC.Version,
		query.EXA.Name, query.EXA.Version,
		strconv.FormatBool(query.IgnoreQuestionScope),
		strings.Join(query.SortedRoles(), ","),
	)
}

// activePrefixes are the prefixes of every active or private entry of an EHC.
func activePrefixes(ehcName string) []string {
	return []string{
		key(activeMergedFormKey, ehcName),
		key(privateMergedFormKey, ehcName),
	}
}

// templatePrefixes are the prefixes of every merged form and page entry of
// an EHC, whatever its version or EXA.
func templatePrefixes(ehcName string) []string {
	return []string{
		key(mergedFormKey, ehcName),
		key(mergedFormPagesKey, ehcName),
	}
}

// MatchesPrefix reports whether k is prefix itself or lies under it. Matching
// stops at segment boundaries, so "EHC1" never matches "EHC10".
func MatchesPrefix(k, prefix string) bool {
	if prefix == "" {
		return false
	}
	return k == prefix || strings.HasPrefix(k, prefix+keySeparator)
}
