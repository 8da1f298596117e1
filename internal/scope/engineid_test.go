package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Pinned against real index files produced by the engine. If the engine's id
// scheme changes, these samples must be re-captured before shipping.
func TestCandidateInternalIDs_PinnedSamples(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want []string
	}{
		{
			name: "full md5 hash",
			hash: "8f14e45fceea167a5a36dedd4bea2543",
			want: []string{
				"doc-8f14e45fceea167a5a36dedd4bea2543",
				"doc-8f14e45fceea167a",
				"doc-8f14e45fce",
			},
		},
		{
			name: "sha256 hash gets all truncations",
			hash: "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae",
			want: []string{
				"doc-2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae",
				"doc-2c26b46b68ffc68ff99b453c1d304134",
				"doc-2c26b46b68ffc68f",
				"doc-2c26b46b68",
			},
		},
		{
			name: "uppercase input is normalized",
			hash: "8F14E45FCEEA167A5A36DEDD4BEA2543",
			want: []string{
				"doc-8f14e45fceea167a5a36dedd4bea2543",
				"doc-8f14e45fceea167a",
				"doc-8f14e45fce",
			},
		},
		{
			name: "short hash yields only full candidate",
			hash: "h2",
			want: []string{"doc-h2"},
		},
		{
			name: "empty hash yields nothing",
			hash: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CandidateInternalIDs(tt.hash))
		})
	}
}

func TestCandidateInternalIDs_Deterministic(t *testing.T) {
	hash := "8f14e45fceea167a5a36dedd4bea2543"
	first := CandidateInternalIDs(hash)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, CandidateInternalIDs(hash))
	}
}

func TestCandidateInternalIDs_MostSpecificFirst(t *testing.T) {
	got := CandidateInternalIDs("0123456789abcdef0123456789abcdef")
	for i := 1; i < len(got); i++ {
		assert.Less(t, len(got[i]), len(got[i-1]), "candidates must shorten monotonically")
	}
}
