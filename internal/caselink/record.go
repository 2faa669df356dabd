package caselink

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Recorder captures the form bodies of portal requests as JSON files so
// a failing session can be replayed against fixtures.
type Recorder struct {
	dir string
}

// NewRecorder creates a timestamped capture directory under dataDir.
func NewRecorder(dataDir string) (*Recorder, error) {
	dir := filepath.Join(dataDir, "caselink-collect-"+time.Now().Format("January-02-2006-03:04"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "caselink: create capture dir")
	}
	return &Recorder{dir: dir}, nil
}

// Dir returns the capture directory path.
func (r *Recorder) Dir() string {
	return r.dir
}

// Save writes one request's form fields as <name>-<uuid>.json. The
// random suffix keeps repeated navigations of the same page from
// clobbering earlier traces. Multi-valued fields are comma-joined,
// matching the capture format of the original collection tooling.
func (r *Recorder) Save(name string, form url.Values) error {
	flat := make(map[string]string, len(form))
	for k, vs := range form {
		joined := ""
		for i, v := range vs {
			if i > 0 {
				joined += ","
			}
			joined += v
		}
		flat[k] = joined
	}
	data, err := json.MarshalIndent(flat, "", "    ")
	if err != nil {
		return eris.Wrap(err, "caselink: marshal trace")
	}
	path := filepath.Join(r.dir, name+"-"+uuid.NewString()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "caselink: write trace %s", name)
	}
	return nil
}
