package experiments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/driftwood/expengine/errorsbp"
	"github.com/driftwood/expengine/filewatcher"
	"github.com/driftwood/expengine/log"
)

// ConfigStore wraps a file watcher that yields decoded JSON snapshots of
// the experiment configuration file, and exposes lookups by experiment
// name, classifying absence from unavailability.
type ConfigStore struct {
	watcher filewatcher.FileWatcher
}

// NewConfigStore blocks (subject to ctx) until the experiment file at
// path has been read and parsed at least once, then returns a
// ConfigStore backed by a hot-reloading watch of it.
//
// Pass a ctx with a deadline; otherwise this can block forever if path
// never becomes available.
func NewConfigStore(ctx context.Context, path string, logger log.Wrapper) (*ConfigStore, error) {
	parser := func(r io.Reader) (interface{}, error) {
		var doc map[string]json.RawMessage
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	watcher, err := filewatcher.New(ctx, filewatcher.Config{
		Path:   path,
		Parser: parser,
		Logger: logger,
	})
	if err != nil {
		return nil, ConfigUnavailableError{Cause: err}
	}
	return &ConfigStore{watcher: watcher}, nil
}

// newConfigStoreFromWatcher builds a ConfigStore directly on top of an
// already-constructed filewatcher.FileWatcher, for tests and for
// callers who want to manage the underlying watcher's lifecycle
// themselves.
func newConfigStoreFromWatcher(watcher filewatcher.FileWatcher) *ConfigStore {
	return &ConfigStore{watcher: watcher}
}

// Get returns the record for name from the current snapshot.
//
// It returns BadConfigShapeError if the watcher's snapshot isn't a
// JSON object or if the record itself can't be decoded (e.g. its "id"
// isn't an integer), and ConfigNotFoundError if name isn't a key in
// an otherwise valid snapshot.
func (c *ConfigStore) Get(name string) (*ExperimentRecord, error) {
	raw := c.watcher.Get()
	doc, ok := raw.(map[string]json.RawMessage)
	if !ok {
		return nil, BadConfigShapeError{Cause: fmt.Errorf(
			"experiments: config snapshot has unexpected type %T", raw,
		)}
	}

	msg, ok := doc[name]
	if !ok {
		return nil, ConfigNotFoundError{Name: name}
	}

	var record ExperimentRecord
	if err := json.Unmarshal(msg, &record); err != nil {
		return nil, BadConfigShapeError{Cause: errorsbp.PrefixError(name, err)}
	}
	record.Name = name
	return &record, nil
}

// Stop stops the underlying file watcher.
func (c *ConfigStore) Stop() {
	c.watcher.Stop()
}
