// Package persist serializes result stores to durable storage: a lossless
// JSON codec for single runs and a SQLite archive for run histories.
package persist

import (
	"encoding/json"
	"io"
	"os"

	"github.com/scitune/scitune/pkg/errors"
	"github.com/scitune/scitune/tune"
)

// runDocument is the JSON shape of a serialized run.
type runDocument struct {
	Trials []*tune.Trial `json:"trials"`
}

// WriteJSON serializes every trial of the store, configurations, per-fold
// metrics, aggregate metrics, predictions and failure causes included.
func WriteJSON(w io.Writer, store *tune.ResultStore) error {
	doc := runDocument{Trials: store.All()}
	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding result store")
	}
	return nil
}

// ReadJSON rebuilds a result store serialized by WriteJSON. The restored
// trials are field-by-field equal to the originals, sequence numbers
// included.
func ReadJSON(r io.Reader) (*tune.ResultStore, error) {
	var doc runDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding result store")
	}
	return tune.RestoreResultStore(doc.Trials), nil
}

// SaveJSON writes a store to a file.
func SaveJSON(path string, store *tune.ResultStore) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := WriteJSON(f, store); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// LoadJSON reads a store from a file written by SaveJSON.
func LoadJSON(path string) (*tune.ResultStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
