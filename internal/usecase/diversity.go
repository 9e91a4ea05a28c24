package usecase

import (
	"math"
	"math/rand"

	"github.com/stylesearch/backend/internal/domain"
)

// TFIDFVectors builds L2-normalized TF-IDF vectors for the given documents.
func TFIDFVectors(docs [][]string) []map[string]float64 {
	n := len(docs)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, term := range doc {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	vectors := make([]map[string]float64, n)
	for i, doc := range docs {
		vec := make(map[string]float64, len(doc))
		if len(doc) == 0 {
			vectors[i] = vec
			continue
		}
		for _, term := range doc {
			vec[term]++
		}
		var norm float64
		for term, tf := range vec {
			idf := math.Log(float64(1+n)/float64(1+df[term])) + 1
			w := (tf / float64(len(doc))) * idf
			vec[term] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for term := range vec {
				vec[term] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// CosineSimilarityMatrix returns pairwise cosine similarity of normalized vectors.
func CosineSimilarityMatrix(vectors []map[string]float64) [][]float64 {
	n := len(vectors)
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		sim[i][i] = 1
		for j := i + 1; j < n; j++ {
			a, b := vectors[i], vectors[j]
			if len(b) < len(a) {
				a, b = b, a
			}
			var dot float64
			for term, w := range a {
				dot += w * b[term]
			}
			sim[i][j] = dot
			sim[j][i] = dot
		}
	}
	return sim
}

// SelectDiverse greedily picks k indices by farthest-point selection over a
// similarity matrix. It starts from index 0 and repeatedly adds the candidate
// whose closest already-selected item is least similar. Ties go to the lower
// index, so the result is deterministic for a fixed matrix.
func SelectDiverse(sim [][]float64, k int) []int {
	n := len(sim)
	if k <= 0 || n == 0 {
		return []int{}
	}
	if k > n {
		k = n
	}

	selected := []int{0}
	chosen := make([]bool, n)
	chosen[0] = true

	// nearest[i] is the highest similarity between i and any selected item
	nearest := make([]float64, n)
	for i := 0; i < n; i++ {
		nearest[i] = sim[i][0]
	}

	for len(selected) < k {
		best := -1
		bestSim := math.Inf(1)
		for i := 0; i < n; i++ {
			if chosen[i] {
				continue
			}
			if nearest[i] < bestSim {
				bestSim = nearest[i]
				best = i
			}
		}
		if best < 0 {
			break
		}
		selected = append(selected, best)
		chosen[best] = true
		for i := 0; i < n; i++ {
			if !chosen[i] && sim[i][best] > nearest[i] {
				nearest[i] = sim[i][best]
			}
		}
	}
	return selected
}

// DiverseProducts selects k products whose titles are mutually dissimilar.
func DiverseProducts(products []domain.Product, k int, stopWords map[string]bool) []domain.Product {
	docs := make([][]string, len(products))
	for i, p := range products {
		docs[i] = tokenize(p.Title, stopWords)
	}
	sim := CosineSimilarityMatrix(TFIDFVectors(docs))

	idx := SelectDiverse(sim, k)
	out := make([]domain.Product, len(idx))
	for pos, i := range idx {
		out[pos] = products[i]
	}
	return out
}

// ShuffleProducts returns a shuffled copy of products.
func ShuffleProducts(products []domain.Product, rng *rand.Rand) []domain.Product {
	out := copyProducts(products)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
