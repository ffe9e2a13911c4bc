// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package requestlog

import (
	"log/slog"
	"strconv"
	"strings"
)

// messageTemplate is a parsed completion message such as
// "HTTP {RequestMethod} {RequestPath} responded {StatusCode}".
type messageTemplate struct {
	raw      string
	segments []templateSegment
}

type templateSegment struct {
	text   string
	name   string
	format string
	// token is the placeholder as written, braces included.
	token string
}

func (s templateSegment) isProperty() bool { return s.name != "" }

// parseTemplate splits raw into literal text and {Name} or {Name:format}
// placeholders. {{ and }} escape braces; malformed placeholders are kept as
// literal text.
func parseTemplate(raw string) messageTemplate {
	tmpl := messageTemplate{raw: raw}
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			tmpl.segments = append(tmpl.segments, templateSegment{text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			text.WriteByte('{')
			i++
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			text.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				text.WriteString(raw[i:])
				i = len(raw)
				continue
			}
			token := raw[i+1 : i+1+end]
			name, format, ok := parsePlaceholder(token)
			if !ok {
				text.WriteString(raw[i : i+2+end])
			} else {
				flush()
				tmpl.segments = append(tmpl.segments, templateSegment{name: name, format: format, token: raw[i : i+2+end]})
			}
			i += end + 1
		default:
			text.WriteByte(c)
		}
	}
	flush()
	return tmpl
}

// parsePlaceholder validates the text between braces. Leading @ or $ hints
// and ",alignment" suffixes are accepted and ignored.
func parsePlaceholder(token string) (name, format string, ok bool) {
	name, format, _ = strings.Cut(token, ":")
	name, _, _ = strings.Cut(name, ",")
	name = strings.TrimLeft(name, "@$")
	if name == "" {
		return "", "", false
	}
	for _, r := range name {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return "", "", false
		}
	}
	return name, format, true
}

// Names returns the property names referenced by the template, in order.
func (t messageTemplate) Names() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.isProperty() {
			names = append(names, seg.name)
		}
	}
	return names
}

// render substitutes props into the template. When a name repeats in props,
// the last value wins. Unknown names are rendered as their placeholder, verbatim.
func (t messageTemplate) render(props []slog.Attr) string {
	values := make(map[string]slog.Value, len(props))
	for _, attr := range props {
		values[attr.Key] = attr.Value
	}

	var b strings.Builder
	b.Grow(len(t.raw) + 32)
	for _, seg := range t.segments {
		if !seg.isProperty() {
			b.WriteString(seg.text)
			continue
		}
		v, ok := values[seg.name]
		if !ok {
			b.WriteString(seg.token)
			continue
		}
		b.WriteString(formatValue(v.Resolve(), seg.format))
	}
	return b.String()
}

// formatValue renders v, honouring fixed-point numeric formats such as
// "0.0000". Other formats are ignored.
func formatValue(v slog.Value, format string) string {
	if decimals, ok := fixedPointDecimals(format); ok {
		switch v.Kind() {
		case slog.KindFloat64:
			return strconv.FormatFloat(v.Float64(), 'f', decimals, 64)
		case slog.KindInt64:
			return strconv.FormatFloat(float64(v.Int64()), 'f', decimals, 64)
		case slog.KindUint64:
			return strconv.FormatFloat(float64(v.Uint64()), 'f', decimals, 64)
		}
	}
	return v.String()
}

func fixedPointDecimals(format string) (int, bool) {
	if format == "" {
		return 0, false
	}
	whole, frac, _ := strings.Cut(format, ".")
	if strings.Trim(whole, "0#") != "" || strings.Trim(frac, "0#") != "" {
		return 0, false
	}
	return len(frac), true
}
