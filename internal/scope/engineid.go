package scope

import "strings"

// internalIDPrefix is the prefix the retrieval engine puts on document ids it
// derives from content.
const internalIDPrefix = "doc-"

// truncationLengths are the hash prefix lengths probed, longest first, when
// deriving legacy internal-id candidates. The engine historically truncated
// the content hash at different lengths across versions.
var truncationLengths = []int{32, 16, 10}

// CandidateInternalIDs derives the internal ids the engine may have assigned
// to a document with the given content hash, most specific first.
//
// This mirrors the engine's own content-based id scheme: a fixed prefix plus
// the lowercased hex hash, possibly truncated. The derivation must be verified
// empirically against the engine version in use; an incorrect derivation makes
// legacy documents resolve as unresolved rather than returning wrong chunks,
// so the failure direction is safe but silent. Keep this function pure and
// pinned by TestCandidateInternalIDs_PinnedSamples.
func CandidateInternalIDs(contentHash string) []string {
	hash := strings.ToLower(strings.TrimSpace(contentHash))
	if hash == "" {
		return nil
	}

	candidates := make([]string, 0, len(truncationLengths)+1)
	seen := make(map[string]struct{}, len(truncationLengths)+1)

	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}

	add(internalIDPrefix + hash)
	for _, n := range truncationLengths {
		if n < len(hash) {
			add(internalIDPrefix + hash[:n])
		}
	}
	return candidates
}
