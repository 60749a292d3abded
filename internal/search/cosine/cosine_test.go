package cosine

import (
	"errors"
	"math"
	"slices"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
)

var sampleDocuments = []string{
	"Python is a programming language",
	"Machine learning uses algorithms and data",
	"Deep learning is a subset of machine learning",
	"Python is widely used in data science and machine learning",
	"Football is a popular sport",
}

const epsilon = 1e-12

func TestBuildVocabularySortedAndUnique(t *testing.T) {
	vocab := BuildVocabulary("b a", "A c", "c  B")
	want := Vocabulary{"a", "b", "c"}
	if !slices.Equal(vocab, want) {
		t.Fatalf("BuildVocabulary() = %v, want %v", vocab, want)
	}
	if vocab.Index("b") != 1 || vocab.Index("z") != -1 {
		t.Errorf("Index lookups wrong: b=%d z=%d", vocab.Index("b"), vocab.Index("z"))
	}
}

func TestTokenizeKeepsPunctuation(t *testing.T) {
	got := Tokenize("Hello, World!\tagain")
	want := []string{"hello,", "world!", "again"}
	if !slices.Equal(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestVectorizeCountsInVocabularyOrder(t *testing.T) {
	vocab := BuildVocabulary("learning machine deep")
	vec := Vectorize("Deep learning is a subset of machine learning", vocab)
	want := TermVector{1, 2, 1}
	if !slices.Equal(vec, want) {
		t.Fatalf("Vectorize() = %v, want %v", vec, want)
	}
	if len(Vectorize("", vocab)) != len(vocab) {
		t.Error("vector length must equal vocabulary size")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b TermVector
		want float64
	}{
		{"identical", TermVector{1, 2, 3}, TermVector{1, 2, 3}, 1},
		{"scaled", TermVector{1, 1}, TermVector{3, 3}, 1},
		{"orthogonal", TermVector{1, 0}, TermVector{0, 4}, 0},
		{"zero left", TermVector{0, 0}, TermVector{1, 1}, 0},
		{"zero right", TermVector{1, 1}, TermVector{0, 0}, 0},
		{"half", TermVector{1, 0}, TermVector{1, 1}, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.IsNaN(got) || math.Abs(got-tt.want) > epsilon {
				t.Errorf("Similarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSearchSampleCorpus(t *testing.T) {
	res, err := Search("Python machine learning", sampleDocuments)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Scores) != len(sampleDocuments) {
		t.Fatalf("got %d scores, want %d", len(res.Scores), len(sampleDocuments))
	}

	want := []float64{
		1 / math.Sqrt(15),
		2 / math.Sqrt(18),
		3 / math.Sqrt(30),
		3 / math.Sqrt(30),
		0,
	}
	for i, w := range want {
		if math.Abs(res.Scores[i]-w) > epsilon {
			t.Errorf("score[%d] = %v, want %v", i, res.Scores[i], w)
		}
	}

	// documents 2 and 3 tie exactly; the first maximum wins
	if res.Scores[2] != res.Scores[3] {
		t.Fatalf("expected exact tie between documents 2 and 3, got %v and %v", res.Scores[2], res.Scores[3])
	}
	if res.BestIndex != 2 || res.BestMatch != sampleDocuments[2] {
		t.Errorf("best = %d %q, want 2 %q", res.BestIndex, res.BestMatch, sampleDocuments[2])
	}
	if res.Scores[4] != 0 {
		t.Errorf("unrelated document score = %v, want exactly 0", res.Scores[4])
	}
	if res.VocabularySize != 21 {
		t.Errorf("VocabularySize = %d, want 21", res.VocabularySize)
	}
	for i := 0; i < 4; i++ {
		if res.Scores[i] <= res.Scores[4] {
			t.Errorf("score[%d] = %v should exceed the unrelated document", i, res.Scores[i])
		}
	}
}

func TestSearchScoresBounded(t *testing.T) {
	queries := []string{"", "python", "learning learning learning", "football is a popular sport", "zzz"}
	for _, q := range queries {
		res, err := Search(q, sampleDocuments)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		for i, s := range res.Scores {
			if s < 0 || s > 1 || math.IsNaN(s) {
				t.Errorf("Search(%q) score[%d] = %v out of [0,1]", q, i, s)
			}
		}
	}
}

func TestSearchSelfSimilarity(t *testing.T) {
	for i, doc := range sampleDocuments {
		res, err := Search(doc, sampleDocuments)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if res.Scores[i] != 1 {
			t.Errorf("self score for document %d = %v, want 1", i, res.Scores[i])
		}
		if res.BestIndex != i {
			t.Errorf("query equal to document %d selected %d", i, res.BestIndex)
		}
	}
}

func TestSearchZeroOverlap(t *testing.T) {
	res, err := Search("quantum chromodynamics", sampleDocuments)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i, s := range res.Scores {
		if s != 0 {
			t.Errorf("score[%d] = %v, want 0", i, s)
		}
	}
	if res.BestIndex != 0 {
		t.Errorf("BestIndex = %d, want 0", res.BestIndex)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   \t\n"} {
		res, err := Search(q, sampleDocuments)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		for i, s := range res.Scores {
			if s != 0 {
				t.Errorf("Search(%q) score[%d] = %v, want 0", q, i, s)
			}
		}
		if res.BestIndex != 0 || res.BestMatch != sampleDocuments[0] {
			t.Errorf("Search(%q) best = %d, want 0", q, res.BestIndex)
		}
	}
}

func TestSearchEmptyDocuments(t *testing.T) {
	for _, docs := range [][]string{nil, {}} {
		_, err := Search("python", docs)
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Search(_, %v) error = %v, want ErrInvalidInput", docs, err)
		}
	}
}

func TestSearchEmptyDocumentScoresZero(t *testing.T) {
	res, err := Search("python", []string{"", "python"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if res.Scores[0] != 0 || res.Scores[1] != 1 || res.BestIndex != 1 {
		t.Errorf("got %+v", res)
	}
}

func BenchmarkSearch(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Search("Python machine learning", sampleDocuments); err != nil {
			b.Fatal(err)
		}
	}
}
