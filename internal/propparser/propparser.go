// Package propparser implements the property-parser input format of
// spec.md §6: "base-id ';' prop1 '=' val1 ',' prop2 '=' val2 ...".
// Grounded line-for-line in original_source/core/parameterparser.cpp.
package propparser

import (
	"strings"

	"go.uber.org/zap"
)

// Separator constants carried verbatim from the original source's usage
// (spec.md §9 open question: their exact character values are inferred
// from usage and preserved as-is).
const (
	TypeSeparator          = ';'
	PropStringSeparator    = ','
	PropNameValueSeparator = '='
)

// GetPropertyMap extracts the name=value pairs following the first
// TypeSeparator in id. Malformed pairs (missing '=') are logged via log
// and skipped; well-formed pairs are stored as name -> value. Unknown
// properties are the caller's concern — this parser does not validate
// property names.
func GetPropertyMap(id string, log *zap.SugaredLogger) map[string]string {
	props := make(map[string]string)

	pos := strings.IndexByte(id, TypeSeparator)
	if pos == -1 {
		return props
	}

	propertiesString := id[pos+1:]
	for _, property := range strings.Split(propertiesString, string(PropStringSeparator)) {
		eq := strings.IndexByte(property, PropNameValueSeparator)
		if eq == -1 {
			if log != nil {
				log.Warnw("ignoring malformed property", "property", property)
			}
			continue
		}
		name := property[:eq]
		value := property[eq+1:]
		props[name] = value
	}

	return props
}

// BaseID returns the portion of id preceding the first TypeSeparator —
// the sensor identifier the property string is attached to.
func BaseID(id string) string {
	if pos := strings.IndexByte(id, TypeSeparator); pos != -1 {
		return id[:pos]
	}
	return id
}

// Encode renders a property map back into the prop1=val1,prop2=val2 form,
// in the given key order, for round-trip tests (spec.md §8 property 5).
func Encode(keys []string, props map[string]string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+string(PropNameValueSeparator)+props[k])
	}
	return strings.Join(parts, string(PropStringSeparator))
}
