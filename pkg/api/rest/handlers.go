package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/bioinformaticstoolsmith/identity/pkg/config"
	"github.com/bioinformaticstoolsmith/identity/pkg/fasta"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/meanshift"
	"github.com/bioinformaticstoolsmith/identity/pkg/model"
	"github.com/bioinformaticstoolsmith/identity/pkg/predictor"
	"github.com/bioinformaticstoolsmith/identity/pkg/scoring"
	"github.com/bioinformaticstoolsmith/identity/pkg/syndata"
	"github.com/bioinformaticstoolsmith/identity/pkg/train"
)

// Handler serves every REST endpoint by calling directly into the
// identity domain packages; there is no RPC hop and no client stub.
type Handler struct {
	cfg *config.Config

	mu    sync.RWMutex
	model *model.Model
	pred  *predictor.Predictor
}

// NewHandler builds a Handler and loads the configured model file if one
// is present. A missing model file is not an error: /v1/score and
// /v1/cluster simply report 503 until /v1/train produces one.
func NewHandler(cfg *config.Config) (*Handler, error) {
	h := &Handler{cfg: cfg}
	if _, err := os.Stat(cfg.Model.Path); err == nil {
		if err := h.loadModel(cfg.Model.Path); err != nil {
			return nil, fmt.Errorf("loading model %q: %w", cfg.Model.Path, err)
		}
	}
	return h, nil
}

func (h *Handler) loadModel(path string) error {
	m, err := model.Load(path)
	if err != nil {
		return err
	}
	pred, err := train.BuildPredictor(m, h.cfg.Scoring.Threshold, h.cfg.Scoring.CanSkip, h.cfg.Scoring.FastExactMode, h.cfg.Scoring.AlphaSize)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.model = m
	h.pred = pred
	h.mu.Unlock()
	return nil
}

func (h *Handler) loaded() (*model.Model, *predictor.Predictor) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model, h.pred
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m, _ := h.loaded()
	writeJSON(w, map[string]interface{}{
		"status":       "ok",
		"model_loaded": m != nil,
	}, http.StatusOK)
}

// GetStats handles GET /v1/stats: the loaded model's header fields.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m, _ := h.loaded()
	if m == nil {
		writeError(w, "No model loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]interface{}{
		"k":            m.K,
		"hist_size":    m.HistSize,
		"abs_error":    m.AbsError,
		"max_length":   m.MaxLength,
		"composition":  m.Composition,
		"feature_num":  len(m.Features),
	}, http.StatusOK)
}

// scoreRequest is the body POST /v1/score expects: two raw nucleotide
// sequences to compare.
type scoreRequest struct {
	SequenceA string `json:"sequence_a"`
	SequenceB string `json:"sequence_b"`
}

// Score handles POST /v1/score: a single pairwise identity prediction
// over two sequences supplied in the request body.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.SequenceA == "" || req.SequenceB == "" {
		writeError(w, "sequence_a and sequence_b are required", http.StatusBadRequest)
		return
	}

	m, pred := h.loaded()
	if pred == nil {
		writeError(w, "No model loaded", http.StatusServiceUnavailable)
		return
	}

	width, err := kmer.SelectWidth(max(len(req.SequenceA), len(req.SequenceB)))
	if err != nil {
		writeError(w, fmt.Sprintf("Selecting histogram width: %v", err), http.StatusBadRequest)
		return
	}

	kHistA, monoHistA, err := buildHistograms(req.SequenceA, m.K, width)
	if err != nil {
		writeError(w, fmt.Sprintf("sequence_a: %v", err), http.StatusBadRequest)
		return
	}
	kHistB, monoHistB, err := buildHistograms(req.SequenceB, m.K, width)
	if err != nil {
		writeError(w, fmt.Sprintf("sequence_b: %v", err), http.StatusBadRequest)
		return
	}

	identity, err := pred.Score(kHistA, kHistB, monoHistA, monoHistB, len(req.SequenceA), len(req.SequenceB))
	if err != nil {
		writeError(w, fmt.Sprintf("Scoring failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"identity": identity}, http.StatusOK)
}

func buildHistograms(seq string, k int, width kmer.Width) ([]int64, []uint64, error) {
	digits := make([]int, len(seq))
	for i := 0; i < len(seq); i++ {
		digits[i] = kmer.Digit(seq[i])
	}
	kh, err := kmer.Build(digits, k, width)
	if err != nil {
		return nil, nil, fmt.Errorf("k-mer histogram: %w", err)
	}
	mh, err := kmer.Build(digits, 1, kmer.Width64)
	if err != nil {
		return nil, nil, fmt.Errorf("monomer histogram: %w", err)
	}
	monoHist := make([]uint64, len(mh.Counts))
	for i, c := range mh.Counts {
		monoHist[i] = uint64(c)
	}
	return kh.Counts, monoHist, nil
}

// batchScoreRequest is the body POST /v1/score/batch expects: a database
// FASTA file, scored against itself or, if QueryPath is set, against a
// separate query FASTA file.
type batchScoreRequest struct {
	DatabasePath string `json:"database_path"`
	QueryPath    string `json:"query_path,omitempty"`
	MaxPairs     int    `json:"max_pairs,omitempty"`
}

// ScoreBatch handles POST /v1/score/batch: streams one or two FASTA files
// through scoring.AllVsAllRunner and returns every pair at or above the
// configured threshold, capped at MaxPairs (default 10000) so a careless
// request can't exhaust server memory on a database-sized file.
func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.DatabasePath == "" {
		writeError(w, "database_path is required", http.StatusBadRequest)
		return
	}
	if req.MaxPairs <= 0 {
		req.MaxPairs = 10000
	}

	m, pred := h.loaded()
	if pred == nil {
		writeError(w, "No model loaded", http.StatusServiceUnavailable)
		return
	}

	width, err := kmer.SelectWidth(int(m.MaxLength))
	if err != nil {
		writeError(w, fmt.Sprintf("Selecting histogram width: %v", err), http.StatusInternalServerError)
		return
	}

	scorer := scoring.NewScorer(pred, h.cfg.Scoring.Threshold, h.cfg.Scoring.WorkerNum)
	runner := scoring.NewAllVsAllRunner(scoring.RunnerConfig{
		K:         m.K,
		Width:     width,
		BlockSize: h.cfg.Cluster.BlockSize,
		WorkerNum: h.cfg.Scoring.WorkerNum,
	}, scorer)

	type pairOut struct {
		Query    string  `json:"query"`
		Target   string  `json:"target"`
		Identity float64 `json:"identity"`
	}
	results := make([]pairOut, 0, 256)
	truncated := false

	sink := func(queryHeader string, rows []scoring.Pair) error {
		for _, row := range rows {
			if len(results) >= req.MaxPairs {
				truncated = true
				return nil
			}
			results = append(results, pairOut{Query: queryHeader, Target: row.Target, Identity: row.Identity})
		}
		return nil
	}

	var runErr error
	if req.QueryPath == "" {
		runErr = runner.RunAllVsAll(req.DatabasePath, sink)
	} else {
		runErr = runner.RunQueryVsAll(req.DatabasePath, req.QueryPath, sink)
	}
	if runErr != nil {
		writeError(w, fmt.Sprintf("Batch scoring failed: %v", runErr), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"pairs":     results,
		"truncated": truncated,
	}, http.StatusOK)
}

// clusterRequest is the body POST /v1/cluster expects: the database FASTA
// file to cluster and an optional threshold, which falls back to
// cfg.Scoring.Threshold when omitted.
type clusterRequest struct {
	DatabasePath string `json:"database_path"`
	Threshold    float64 `json:"threshold,omitempty"`
}

// Cluster handles POST /v1/cluster: runs streaming mean-shift clustering
// over a FASTA file and reports the final cluster assignment.
func (h *Handler) Cluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req clusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.DatabasePath == "" {
		writeError(w, "database_path is required", http.StatusBadRequest)
		return
	}

	m, pred := h.loaded()
	if pred == nil {
		writeError(w, "No model loaded", http.StatusServiceUnavailable)
		return
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = h.cfg.Scoring.Threshold
	}
	width, err := kmer.SelectWidth(int(m.MaxLength))
	if err != nil {
		writeError(w, fmt.Sprintf("Selecting histogram width: %v", err), http.StatusInternalServerError)
		return
	}

	large, err := meanshift.NewLarge(meanshift.LargeConfig{
		K:            m.K,
		Width:        width,
		BlockSize:    h.cfg.Cluster.BlockSize,
		VBlockSize:   h.cfg.Cluster.VBlockSize,
		PassNum:      h.cfg.Cluster.PassNum,
		Threshold:    threshold,
		ErrorMargin:  m.AbsError,
		WorkerNum:    h.cfg.Cluster.WorkerNum,
		CanAssignAll: h.cfg.Cluster.CanAssignAll,
		CanRelax:     h.cfg.Cluster.CanRelax,
		CanEvaluate:  h.cfg.Cluster.CanEvaluate,
	}, pred, req.DatabasePath)
	if err != nil {
		writeError(w, fmt.Sprintf("Clustering failed: %v", err), http.StatusInternalServerError)
		return
	}

	result, err := large.Assign()
	if err != nil {
		writeError(w, fmt.Sprintf("Assignment pass failed: %v", err), http.StatusInternalServerError)
		return
	}

	type clusterOut struct {
		ID     int      `json:"id"`
		Size   int      `json:"size"`
		Center string   `json:"center"`
		Members []string `json:"members"`
	}
	project := func(list []*meanshift.ClusterInfo) []clusterOut {
		out := make([]clusterOut, len(list))
		for i, c := range list {
			out[i] = clusterOut{ID: c.Identifier(), Size: c.Size(), Center: c.Center(), Members: c.Headers()}
		}
		return out
	}

	writeJSON(w, map[string]interface{}{
		"clusters": project(result.Clusters),
		"singles":  project(result.Singles),
		"total":    result.Total,
	}, http.StatusOK)
}

// trainRequest is the body POST /v1/train expects: a reference FASTA
// file to generate synthetic mutated training pairs from.
type trainRequest struct {
	ReferencePath string  `json:"reference_path"`
	Threshold     float64 `json:"threshold,omitempty"`
}

// Train handles POST /v1/train: generates a labeled statistic matrix from
// a reference FASTA file, fits a fresh classifier, saves it to the
// configured model path, and hot-swaps the handler's in-memory predictor.
// Restricted to config.RESTConfig.AdminPaths by the auth middleware.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.ReferencePath == "" {
		writeError(w, "reference_path is required", http.StatusBadRequest)
		return
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = h.cfg.Scoring.Threshold
	}

	reader, err := fasta.NewReader(req.ReferencePath, 1<<20, 0, 0)
	if err != nil {
		writeError(w, fmt.Sprintf("Opening reference file: %v", err), http.StatusBadRequest)
		return
	}
	defer reader.Close()

	var seqs []string
	for reader.IsStillReading() {
		records, err := reader.Read()
		if err != nil {
			writeError(w, fmt.Sprintf("Reading reference file: %v", err), http.StatusInternalServerError)
			return
		}
		for _, rec := range records {
			seqs = append(seqs, rec.Sequence)
		}
	}
	if len(seqs) == 0 {
		writeError(w, "Reference file has no sequences", http.StatusBadRequest)
		return
	}

	maxLen := 0
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}

	features, labels, histK, histSize, comp, err := syndata.Generate(seqs, threshold, syndata.Config{
		MinId:            h.cfg.Training.MinID,
		MutPerTemplate:   h.cfg.Training.MutationsPerTemp,
		BlockSize:        len(seqs),
		MinBlockSize:     h.cfg.Training.MinBlockSize,
		MaxBlockSize:     h.cfg.Training.MaxBlockSize,
		MutSingle:        true,
		MutBlock:         true,
		MutTranslocation: true,
		MutInversion:     true,
		KRelax:           h.cfg.Training.KRelax,
		ThreadNum:        h.cfg.Scoring.WorkerNum,
	})
	if err != nil {
		writeError(w, fmt.Sprintf("Generating training data: %v", err), http.StatusInternalServerError)
		return
	}

	result, err := train.Run(features, labels, histK, histSize, comp, int64(maxLen), train.Config{
		MinFeatNum: h.cfg.Training.MinFeatNum,
		Patience:   h.cfg.Training.Patience,
	})
	if err != nil {
		writeError(w, fmt.Sprintf("Training failed: %v", err), http.StatusInternalServerError)
		return
	}

	if err := model.Save(h.cfg.Model.Path, result.Model); err != nil {
		writeError(w, fmt.Sprintf("Saving model: %v", err), http.StatusInternalServerError)
		return
	}
	if err := h.loadModel(h.cfg.Model.Path); err != nil {
		writeError(w, fmt.Sprintf("Reloading trained model: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"accuracy":    result.Accuracy,
		"sensitivity": result.Sensitivity,
		"specificity": result.Specificity,
		"feature_num": result.FeatureNum,
	}, http.StatusOK)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ServeDocs serves the OpenAPI/Swagger documentation.
func ServeDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		writeError(w, "OpenAPI spec not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// ServeSwaggerUI serves the Swagger UI HTML page.
func ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	html := `<!DOCTYPE html>
<html>
<head>
    <title>Identity API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/docs/openapi.yaml",
                dom_id: '#swagger-ui',
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.SwaggerUIStandalonePreset
                ],
                layout: "BaseLayout"
            });
        };
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ParseIntQuery parses an integer query parameter.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
