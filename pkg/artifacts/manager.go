// Package artifacts persists a run's model, preprocessing bundle, feature
// metadata, and metrics under a unique run directory, and loads them back
// for inference.
package artifacts

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/estimator"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
)

// Artifact file names inside a run directory.
const (
	ModelFile         = "model.gob"
	PreprocessingFile = "preprocessing.gob"
	FeatureMetaFile   = "feature_metadata.json"
	MetricsFile       = "metrics.json"

	stagingDirName = ".staging"
	formatVersion  = 1
)

func init() {
	// Concrete types crossing the gob envelope's any payload.
	gob.Register(&preprocess.Artifacts{})
	gob.Register(&estimator.LinearRegression{})
	gob.Register(&estimator.LogisticRegression{})
	gob.Register(&estimator.DecisionTreeClassifier{})
	gob.Register(&estimator.DecisionTreeRegressor{})
	gob.Register(&estimator.RandomForestClassifier{})
	gob.Register(&estimator.RandomForestRegressor{})
	gob.Register(&estimator.GradientBoostingClassifier{})
	gob.Register(&estimator.GradientBoostingRegressor{})
	gob.Register(&estimator.KNNClassifier{})
	gob.Register(&estimator.KNNRegressor{})
	gob.Register(&estimator.LinearSVM{})
	gob.Register(&estimator.MultinomialNB{})
}

// envelope is the versioned binary serialization wrapper for models and
// preprocessing bundles.
type envelope struct {
	FormatVersion int
	Kind          string
	Payload       any
}

// FeatureMetadata is the feature-metadata document of a run.
type FeatureMetadata struct {
	ModelName            string   `json:"model_name"`
	TaskType             string   `json:"task_type"`
	DataType             string   `json:"data_type"`
	TargetColumn         string   `json:"target_column"`
	FeatureNames         []string `json:"feature_names"`
	FeatureCount         int      `json:"feature_count"`
	SelectedFeatures     []string `json:"selected_features,omitempty"`
	SelectedFeatureCount int      `json:"selected_feature_count,omitempty"`
}

// SavedRun is the durable record of one persisted run. All paths are
// relative and forward-slash normalized.
type SavedRun struct {
	RunID               string `json:"run_id"`
	ArtifactsPath       string `json:"artifacts_path"`
	ModelPath           string `json:"model_path"`
	PreprocessingPath   string `json:"preprocessing_path"`
	FeatureMetadataPath string `json:"feature_metadata_path"`
	MetricsPath         string `json:"metrics_path"`
}

// LoadedRun is the symmetric result of loading a run's bundle.
type LoadedRun struct {
	RunID         string
	Model         any
	Preprocessing *preprocess.Artifacts
	Metadata      *FeatureMetadata
	Metrics       map[string]any
}

// Manager owns the artifact root directory.
type Manager struct {
	Root string
	log  *logging.Logger
}

// NewManager creates an artifact manager rooted at dir.
func NewManager(dir string, log *logging.Logger) *Manager {
	return &Manager{Root: dir, log: log.Component("artifacts")}
}

// NewRunID generates a unique run identifier, collision-checked against
// existing run directories.
func (m *Manager) NewRunID() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.NewString()[:8])
		if _, err := os.Stat(filepath.Join(m.Root, id)); os.IsNotExist(err) {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique run id")
}

// Save writes the four artifact files into a staging directory and
// publishes them with a single rename. A failure at any point removes the
// staging directory; no partially written run directory is ever published.
func (m *Manager) Save(modelName string, model any, prep *preprocess.Artifacts, meta *FeatureMetadata, metrics map[string]any) (*SavedRun, error) {
	runID, err := m.NewRunID()
	if err != nil {
		return nil, &automlerrors.ArtifactPersistenceError{RunID: "", Op: "save", Cause: err}
	}

	staging := filepath.Join(m.Root, stagingDirName, runID)
	final := filepath.Join(m.Root, runID)

	fail := func(cause error) (*SavedRun, error) {
		os.RemoveAll(staging)
		return nil, &automlerrors.ArtifactPersistenceError{RunID: runID, Op: "save", Cause: cause}
	}

	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fail(err)
	}
	if err := writeGob(filepath.Join(staging, ModelFile), envelope{FormatVersion: formatVersion, Kind: modelName, Payload: model}); err != nil {
		return fail(err)
	}
	if err := writeGob(filepath.Join(staging, PreprocessingFile), envelope{FormatVersion: formatVersion, Kind: "preprocessing", Payload: prep}); err != nil {
		return fail(err)
	}
	if err := writeJSON(filepath.Join(staging, FeatureMetaFile), meta); err != nil {
		return fail(err)
	}
	if err := writeJSON(filepath.Join(staging, MetricsFile), Sanitize(metrics)); err != nil {
		return fail(err)
	}
	if err := os.Rename(staging, final); err != nil {
		return fail(err)
	}

	m.log.Info("artifacts persisted", logging.RunID(runID), logging.String("model", modelName))
	return &SavedRun{
		RunID:               runID,
		ArtifactsPath:       relPath(m.Root, runID),
		ModelPath:           relPath(m.Root, runID, ModelFile),
		PreprocessingPath:   relPath(m.Root, runID, PreprocessingFile),
		FeatureMetadataPath: relPath(m.Root, runID, FeatureMetaFile),
		MetricsPath:         relPath(m.Root, runID, MetricsFile),
	}, nil
}

// Load reads a run's bundle back into memory. Transforming new input with
// the returned preprocessing state and calling the model's predict
// operation reproduces the training-time behavior.
func (m *Manager) Load(runID string) (*LoadedRun, error) {
	dir := filepath.Join(m.Root, runID)
	fail := func(cause error) (*LoadedRun, error) {
		return nil, &automlerrors.ArtifactPersistenceError{RunID: runID, Op: "load", Cause: cause}
	}

	var modelEnv envelope
	if err := readGob(filepath.Join(dir, ModelFile), &modelEnv); err != nil {
		return fail(err)
	}
	if modelEnv.FormatVersion != formatVersion {
		return fail(fmt.Errorf("unsupported model format version %d", modelEnv.FormatVersion))
	}
	var prepEnv envelope
	if err := readGob(filepath.Join(dir, PreprocessingFile), &prepEnv); err != nil {
		return fail(err)
	}
	prep, ok := prepEnv.Payload.(*preprocess.Artifacts)
	if !ok {
		return fail(fmt.Errorf("preprocessing payload has unexpected type %T", prepEnv.Payload))
	}

	meta := &FeatureMetadata{}
	if err := readJSON(filepath.Join(dir, FeatureMetaFile), meta); err != nil {
		return fail(err)
	}
	metrics := make(map[string]any)
	if err := readJSON(filepath.Join(dir, MetricsFile), &metrics); err != nil {
		return fail(err)
	}

	return &LoadedRun{
		RunID:         runID,
		Model:         modelEnv.Payload,
		Preprocessing: prep,
		Metadata:      meta,
		Metrics:       metrics,
	}, nil
}

// SweepStaging removes staging leftovers older than the cutoff. Crashed
// runs may orphan their staging directories; the jobs retention sweeper
// calls this periodically.
func (m *Manager) SweepStaging(olderThan time.Duration) error {
	staging := filepath.Join(m.Root, stagingDirName)
	entries, err := os.ReadDir(staging)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-olderThan)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(staging, e.Name())
			if err := os.RemoveAll(path); err != nil {
				m.log.Warn("failed to sweep staging dir", logging.String("path", path), logging.Err(err))
			}
		}
	}
	return nil
}

func relPath(root string, parts ...string) string {
	return filepath.ToSlash(filepath.Join(append([]string{root}, parts...)...))
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return f.Sync()
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
