package format

import (
	"sort"
	"strconv"
	"strings"

	"github.com/quarrylabs/quarry/internal/domain"
)

const (
	defaultMaxChunks = 200
	chunkSeparator   = "\n\n"
)

// Metadata keys tried, in order, for a chunk's position within its document.
var chunkOrderFields = []string{"chunk_index", "chunk_number", "chunk_order", "chunk"}

// ReassembleOptions bounds document reassembly.
type ReassembleOptions struct {
	MaxChunks int
	Separator string
}

func (o ReassembleOptions) withDefaults() ReassembleOptions {
	if o.MaxChunks <= 0 {
		o.MaxChunks = defaultMaxChunks
	}
	if o.Separator == "" {
		o.Separator = chunkSeparator
	}
	return o
}

type chunk struct {
	res     domain.SearchResult
	order   float64
	ordered bool
}

type docGroup struct {
	key    string
	chunks []chunk
}

// Reassemble groups chunk-level results by document identifier and stitches
// each group back into a whole document. Chunks with a recognizable order
// field sort by it; the rest follow in their retrieval order. Documents come
// back sorted by their best chunk score, descending.
func Reassemble(results []domain.SearchResult, opts ReassembleOptions) []domain.ReassembledDocument {
	opts = opts.withDefaults()

	groups := make(map[string]*docGroup)
	var keys []string
	for _, res := range results {
		key := documentKey(res)
		g, ok := groups[key]
		if !ok {
			g = &docGroup{key: key}
			groups[key] = g
			keys = append(keys, key)
		}
		order, ordered := chunkOrder(res.Metadata)
		g.chunks = append(g.chunks, chunk{res: res, order: order, ordered: ordered})
	}

	docs := make([]domain.ReassembledDocument, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, assemble(groups[key], opts))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].BestScore > docs[j].BestScore
	})
	return docs
}

func assemble(g *docGroup, opts ReassembleOptions) domain.ReassembledDocument {
	// Ordered chunks first, by position; unordered chunks keep their
	// relative retrieval order after them.
	sort.SliceStable(g.chunks, func(i, j int) bool {
		a, b := g.chunks[i], g.chunks[j]
		if a.ordered != b.ordered {
			return a.ordered
		}
		if a.ordered {
			return a.order < b.order
		}
		return false
	})

	chunks := g.chunks
	if len(chunks) > opts.MaxChunks {
		chunks = chunks[:opts.MaxChunks]
	}

	var (
		parts []string
		best  float64
	)
	for _, c := range chunks {
		if text := strings.TrimSpace(c.res.Content); text != "" {
			parts = append(parts, text)
		}
		if c.res.Score > best {
			best = c.res.Score
		}
	}

	return domain.ReassembledDocument{
		DocumentID: g.key,
		Content:    strings.Join(parts, opts.Separator),
		Metadata:   chunks[0].res.Metadata,
		ChunkCount: len(chunks),
		BestScore:  domain.RoundScore(best),
	}
}

func documentKey(res domain.SearchResult) string {
	for _, f := range domain.IdentifierFields {
		if s, ok := res.Metadata.Str(f); ok && s != "" {
			return s
		}
	}
	return res.ID
}

// chunkOrder extracts a numeric chunk position from the first recognizable
// order field. String values that parse as numbers count too.
func chunkOrder(md domain.Metadata) (float64, bool) {
	for _, f := range chunkOrderFields {
		v, ok := md[f]
		if !ok {
			continue
		}
		switch v.Kind() {
		case domain.KindNumber:
			return v.Num(), true
		case domain.KindString:
			if n, err := strconv.ParseFloat(v.Str(), 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
