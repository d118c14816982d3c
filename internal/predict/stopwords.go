package predict

import (
	"sort"

	"github.com/kmatzaris/periegete/internal/store"
	"github.com/kmatzaris/periegete/internal/textnorm"
)

// EffectiveStopwords returns the union of every extracted proper-noun form
// and every manual stopword, normalized. It is recomputed from the store
// on each call rather than cached: manual entries change between runs and
// a stale set would silently leak nouns into the predictors.
func EffectiveStopwords(st *store.Store) ([]string, error) {
	forms, err := st.NounForms()
	if err != nil {
		return nil, err
	}
	manual, err := st.ManualStopwords()
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(forms)+len(manual))
	for _, f := range forms {
		if w := textnorm.Fold(f); w != "" {
			set[w] = struct{}{}
		}
	}
	for _, m := range manual {
		if w := textnorm.Fold(m); w != "" {
			set[w] = struct{}{}
		}
	}

	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return words, nil
}
