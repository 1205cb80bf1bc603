package lazy

import (
	"html"
	"strings"
)

const (
	beginMarkerPrefix = `<input type="hidden" data-lazy-begin="`
	endMarkerPrefix   = `<input type="hidden" data-lazy-end="`
	markerSuffix      = `">`
)

func beginMarker(id string) string {
	return beginMarkerPrefix + html.EscapeString(id) + markerSuffix
}

func endMarker(id string) string {
	return endMarkerPrefix + html.EscapeString(id) + markerSuffix
}

// wrapContent surrounds server content with the markers a client uses to
// find it again.
func wrapContent(id, content string) string {
	return beginMarker(id) + content + endMarker(id)
}

// fragment is the server output for one unit as found in persisted markup.
type fragment struct {
	outer string // markers included
	inner string // content only
}

// extractFragments scans persisted markup for marker pairs, including pairs
// nested inside another unit's content. The first occurrence of an id wins;
// an unterminated begin marker is ignored.
func extractFragments(doc string) map[string]fragment {
	out := make(map[string]fragment)
	rest := doc
	for {
		start := strings.Index(rest, beginMarkerPrefix)
		if start < 0 {
			return out
		}
		afterPrefix := rest[start+len(beginMarkerPrefix):]
		idEnd := strings.Index(afterPrefix, markerSuffix)
		if idEnd < 0 {
			return out
		}
		rawID := afterPrefix[:idEnd]
		body := afterPrefix[idEnd+len(markerSuffix):]

		end := endMarkerPrefix + rawID + markerSuffix
		endIdx := strings.Index(body, end)
		if endIdx < 0 {
			rest = body
			continue
		}

		id := html.UnescapeString(rawID)
		if _, seen := out[id]; !seen {
			inner := body[:endIdx]
			out[id] = fragment{
				outer: beginMarkerPrefix + rawID + markerSuffix + inner + end,
				inner: inner,
			}
		}
		// Keep scanning inside the body so nested units are found too.
		rest = body
	}
}
