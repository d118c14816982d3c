// Package export writes the derived artifacts consumed by the static site
// renderer: ranked predictor words per dimension and the proper-noun
// co-occurrence network in D3 nodes/links form.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/network"
	"github.com/kmatzaris/periegete/internal/store"
)

// PredictorSet groups one dimension's ranked predictor words,
// strongest coefficient first.
type PredictorSet struct {
	Dimension model.Dimension   `json:"dimension" yaml:"dimension"`
	Words     []model.Predictor `json:"words" yaml:"words"`
}

// Predictors loads the stored predictor words for every dimension.
// Dimensions with no stored model are omitted.
func Predictors(st *store.Store) ([]PredictorSet, error) {
	var sets []PredictorSet
	for _, d := range model.Dimensions() {
		preds, err := st.Predictors(d)
		if err != nil {
			return nil, err
		}
		if len(preds) == 0 {
			continue
		}
		sets = append(sets, PredictorSet{Dimension: d, Words: preds})
	}
	return sets, nil
}

// WritePredictors writes predictors.json and predictors.yaml under dir.
func WritePredictors(st *store.Store, dir string) error {
	sets, err := Predictors(st)
	if err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "predictors.json"), sets); err != nil {
		return err
	}
	data, err := yaml.Marshal(sets)
	if err != nil {
		return fmt.Errorf("marshal predictors: %w", err)
	}
	return writeFile(filepath.Join(dir, "predictors.yaml"), data)
}

// WriteNetwork writes the co-occurrence graph as network.json under dir.
func WriteNetwork(g *network.Graph, dir string) error {
	return writeJSON(filepath.Join(dir, "network.json"), g)
}

// All rebuilds the network from stored nouns and writes every artifact.
func All(st *store.Store, cfg model.NetworkConfig, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := WritePredictors(st, dir); err != nil {
		return err
	}
	nouns, err := st.ProperNouns()
	if err != nil {
		return err
	}
	g := network.Build(nouns, cfg.MinCooccurrence)
	return WriteNetwork(g, dir)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
