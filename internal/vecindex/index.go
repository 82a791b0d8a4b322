// Package vecindex implements the per-document semantic index: an
// ordered list of (embedding, chunk) pairs with exact brute-force
// cosine search. An index is immutable once built and serializes to an
// opaque blob for persistence alongside its document.
package vecindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"chatdoc/internal/segmenter"
	"chatdoc/internal/service"
)

// Hit is a retrieved chunk with its similarity score.
type Hit struct {
	Chunk segmenter.Chunk
	Score float64
}

// Index holds the embeddings and chunk texts for one document, in chunk
// order. It is safe for concurrent queries after Build.
type Index struct {
	dim     int
	vectors [][]float32
	texts   []string
}

// Build constructs an index from parallel slices of chunks and their
// embeddings. All embeddings must share one dimensionality and the two
// slices must have equal length. An empty input yields a valid empty
// index.
func Build(chunks []segmenter.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, &service.DimensionError{Want: len(chunks), Got: len(vectors)}
	}
	idx := &Index{}
	if len(chunks) == 0 {
		return idx, nil
	}

	idx.dim = len(vectors[0])
	idx.vectors = make([][]float32, len(vectors))
	idx.texts = make([]string, len(chunks))
	for i, vec := range vectors {
		if len(vec) != idx.dim {
			return nil, &service.DimensionError{Want: idx.dim, Got: len(vec)}
		}
		v := make([]float32, len(vec))
		copy(v, vec)
		idx.vectors[i] = v
		idx.texts[i] = chunks[i].Text
	}
	return idx, nil
}

// Len returns the number of chunks in the index.
func (idx *Index) Len() int { return len(idx.texts) }

// Dim returns the embedding dimensionality, or 0 for an empty index.
func (idx *Index) Dim() int { return idx.dim }

// Query returns the min(k, Len) chunks most similar to the query vector,
// sorted by descending cosine similarity. Ties are broken by ascending
// chunk position so results are deterministic. Querying an empty index
// returns no hits; k <= 0 is a contract violation.
func (idx *Index) Query(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, service.ErrInvalidArgument)
	}
	if idx.Len() == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, &service.DimensionError{Want: idx.dim, Got: len(query)}
	}

	scores := make([]float64, len(idx.vectors))
	for i, vec := range idx.vectors {
		scores[i] = cosine(vec, query)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// Stable sort keeps equal scores in chunk order: earlier chunk wins.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		pos := order[i]
		hits[i] = Hit{
			Chunk: segmenter.Chunk{Index: pos, Text: idx.texts[pos]},
			Score: scores[pos],
		}
	}
	return hits, nil
}

// cosine computes cosine similarity in float64 for stability. A zero
// vector scores 0 against everything.
func cosine(a []float32, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// indexBlob is the gob wire form of an Index.
type indexBlob struct {
	Dim     int
	Vectors [][]float32
	Texts   []string
}

// Serialize encodes the index to an opaque byte blob. The blob
// round-trips through Deserialize without the embedding provider being
// reachable.
func (idx *Index) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	blob := indexBlob{Dim: idx.dim, Vectors: idx.vectors, Texts: idx.texts}
	if err := gob.NewEncoder(&buf).Encode(blob); err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize reconstructs an index from a blob produced by Serialize:
// same chunks, same vectors, same order.
func Deserialize(data []byte) (*Index, error) {
	var blob indexBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if len(blob.Vectors) != len(blob.Texts) {
		return nil, &service.DimensionError{Want: len(blob.Texts), Got: len(blob.Vectors)}
	}
	for _, vec := range blob.Vectors {
		if len(vec) != blob.Dim {
			return nil, &service.DimensionError{Want: blob.Dim, Got: len(vec)}
		}
	}
	return &Index{dim: blob.Dim, vectors: blob.Vectors, texts: blob.Texts}, nil
}
