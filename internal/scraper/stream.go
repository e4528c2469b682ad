package scraper

import (
	"encoding/json"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// House-prices pages embed their route loader data in React Router turbo
// stream chunks: window.__reactRouterContext.streamController.enqueue()
// calls whose argument is a JS-escaped JSON string. The main data chunk is
// a flat array in which objects are {"_N": ref} maps and lists hold
// references; integers address other slots of the same array.
var enqueueRe = regexp.MustCompile(`streamController\.enqueue\("((?:[^"\\]|\\.)*)"\)`)

const (
	// Chunks starting with "P" are promise-resolution stubs, never data.
	promisePrefix = "P"
	// The data chunk is the first array longer than this; smaller arrays
	// are routing metadata.
	minGraphLen = 50

	// Reserved reference values meaning null.
	sentinelNullA = -5
	sentinelNullB = -6

	// Recursion cap for reference resolution. The format is only
	// acyclic by observation, not by contract; past this depth the
	// decoder gives up on the branch and yields nil.
	maxResolveDepth = 64
)

type rawChunk struct {
	text        string
	placeholder bool
}

// extractChunks collects every enqueue payload from the page's script
// tags, in document order, unescaped. Escapes are undone by decoding the
// payload as a single JSON string value; a naive unicode-escape pass would
// corrupt multi-byte characters like the pound sign.
func extractChunks(html string) []rawChunk {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var chunks []rawChunk
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, m := range enqueueRe.FindAllStringSubmatch(s.Text(), -1) {
			text := m[1]
			var unescaped string
			if err := json.Unmarshal([]byte(`"`+text+`"`), &unescaped); err != nil {
				unescaped = text
			}
			chunks = append(chunks, rawChunk{
				text:        unescaped,
				placeholder: strings.HasPrefix(unescaped, promisePrefix),
			})
		}
	})
	return chunks
}

// selectFlatGraph returns the first chunk in the page that parses as a
// flat reference array with more than minGraphLen elements. A nil return
// means the page carried no graph, which is a legitimate state (empty
// result page, layout change) rather than an error.
func selectFlatGraph(html string) []any {
	for _, chunk := range extractChunks(html) {
		if chunk.placeholder {
			continue
		}
		var flat []any
		if err := json.Unmarshal([]byte(chunk.text), &flat); err != nil {
			continue
		}
		if len(flat) > minGraphLen {
			return flat
		}
	}
	return nil
}

// Tokens the domain extractor understands. Used as a drift check: a graph
// that decodes but carries none of these means the site changed shape.
var knownMarkers = []string{
	"properties", "propertyListing", "transactions", "latestTransaction",
	"address", "propertyType",
}

func markerPresence(flat []any) int {
	count := 0
	for _, slot := range flat {
		s, ok := slot.(string)
		if !ok {
			continue
		}
		for _, marker := range knownMarkers {
			if s == marker {
				count++
				break
			}
		}
	}
	return count
}

// Decoder resolves references within one flat turbo stream array. The
// memo table is scoped to the page being decoded: create a fresh Decoder
// per graph and never share one across pages.
type Decoder struct {
	flat []any
	memo map[int]any

	// slots materialized, counted once per index (memo hits excluded)
	expansions int
}

// NewDecoder creates a decode session for one flat graph.
func NewDecoder(flat []any) *Decoder {
	return &Decoder{
		flat: flat,
		memo: make(map[int]any),
	}
}

// refIndex reports whether v is usable as a slot reference. JSON numbers
// arrive as float64; only integral values count as references, fractional
// ones are literals.
func refIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

// ResolveValue materializes a single reference. Booleans are literals,
// the two reserved sentinels are null, in-range integers address slots,
// and everything else — including out-of-range or negative non-sentinel
// integers — passes through as its literal value, so unknown encodings
// degrade instead of failing.
func (d *Decoder) ResolveValue(ref any) any {
	return d.resolveValue(ref, 0)
}

// ResolveObject materializes a shape: each "_N" key is named by slot N
// when that slot holds a string (otherwise the raw key is kept) and each
// value is resolved like any other reference.
func (d *Decoder) ResolveObject(obj map[string]any) map[string]any {
	return d.resolveObject(obj, 0)
}

// ResolveList materializes a reference list.
func (d *Decoder) ResolveList(list []any) []any {
	return d.resolveList(list, 0)
}

func (d *Decoder) resolveValue(ref any, depth int) any {
	if depth > maxResolveDepth {
		return nil
	}
	switch v := ref.(type) {
	case bool:
		return v
	case map[string]any:
		return d.resolveObject(v, depth)
	case []any:
		return d.resolveList(v, depth)
	}

	idx, ok := refIndex(ref)
	if !ok {
		return ref
	}
	if idx == sentinelNullA || idx == sentinelNullB {
		return nil
	}
	if idx < 0 || idx >= len(d.flat) {
		return ref
	}
	return d.resolveIndex(idx, depth)
}

func (d *Decoder) resolveIndex(idx, depth int) any {
	if v, ok := d.memo[idx]; ok {
		return v
	}
	d.expansions++

	var out any
	switch slot := d.flat[idx].(type) {
	case map[string]any:
		out = d.resolveObject(slot, depth+1)
	case []any:
		out = d.resolveList(slot, depth+1)
	default:
		out = slot
	}

	d.memo[idx] = out
	return out
}

func (d *Decoder) resolveObject(obj map[string]any, depth int) map[string]any {
	if depth > maxResolveDepth {
		return nil
	}
	result := make(map[string]any, len(obj))
	for refKey, refVal := range obj {
		result[d.fieldName(refKey)] = d.resolveValue(refVal, depth+1)
	}
	return result
}

func (d *Decoder) resolveList(list []any, depth int) []any {
	if depth > maxResolveDepth {
		return nil
	}
	result := make([]any, 0, len(list))
	for _, item := range list {
		result = append(result, d.resolveValue(item, depth+1))
	}
	return result
}

// fieldName resolves an encoded "_N" key through the flat array. Keys
// whose slot is missing or not a string keep their raw token.
func (d *Decoder) fieldName(refKey string) string {
	idx, err := strconv.Atoi(strings.TrimPrefix(refKey, "_"))
	if err != nil || idx < 0 || idx >= len(d.flat) {
		return refKey
	}
	if name, ok := d.flat[idx].(string); ok {
		return name
	}
	return refKey
}

// parseTurboStream extracts the page's flat graph and warns when a graph
// decodes but carries no recognizable markers, since a silent site-side
// format change would otherwise only show up as empty results.
func parseTurboStream(html, pageURL string) []any {
	flat := selectFlatGraph(html)
	if flat == nil {
		return nil
	}
	if markerPresence(flat) == 0 {
		log.Printf("Turbo stream graph on %s has no known markers; format may have changed", pageURL)
	}
	return flat
}
