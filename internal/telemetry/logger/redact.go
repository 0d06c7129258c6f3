package logger

import "log/slog"

// maxLoggedValueLen bounds the size of a string attribute rendered into a
// log line. Command payloads (SET, XADD field values) can be arbitrarily
// large; logging them in full would make log output unusable and let a
// client flood the log stream by size alone.
const maxLoggedValueLen = 256

const truncatedSuffix = "...(truncated)"

// redactOversized truncates string attribute values longer than
// maxLoggedValueLen. It does not touch key names, so command names and key
// names are always logged verbatim.
func redactOversized(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		if len(v) > maxLoggedValueLen {
			return slog.String(a.Key, v[:maxLoggedValueLen]+truncatedSuffix)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactOversized(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// Truncate applies the same size bound manually, for call sites that embed
// a command argument into a message string rather than a structured attr.
func Truncate(value string) string {
	if len(value) > maxLoggedValueLen {
		return value[:maxLoggedValueLen] + truncatedSuffix
	}
	return value
}
