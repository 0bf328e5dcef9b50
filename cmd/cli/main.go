package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bioinformaticstoolsmith/identity/pkg/api/rest"
	"github.com/bioinformaticstoolsmith/identity/pkg/config"
	"github.com/bioinformaticstoolsmith/identity/pkg/fasta"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/meanshift"
	"github.com/bioinformaticstoolsmith/identity/pkg/model"
	"github.com/bioinformaticstoolsmith/identity/pkg/scoring"
	"github.com/bioinformaticstoolsmith/identity/pkg/syndata"
	"github.com/bioinformaticstoolsmith/identity/pkg/train"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "train":
		handleTrain(os.Args[2:])
	case "score":
		handleScore(os.Args[2:])
	case "cluster":
		handleCluster(os.Args[2:])
	case "serve":
		handleServe(os.Args[2:])
	case "version":
		fmt.Printf("identity-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

// handleTrain generates synthetic mutated training pairs from a reference
// FASTA file, fits a classifier, and saves it to a model file.
func handleTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	var (
		reference = fs.String("reference", "", "reference FASTA file to mutate (required)")
		output    = fs.String("output", "identity.model", "path to write the trained model")
		threshold = fs.Float64("threshold", 0.9, "identity threshold training targets")
	)
	fs.Parse(args)

	if *reference == "" {
		fmt.Println("Error: -reference is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := config.LoadFromEnv()

	seqs, err := readAllSequences(*reference)
	if err != nil {
		fmt.Printf("Error reading reference file: %v\n", err)
		os.Exit(1)
	}
	if len(seqs) == 0 {
		fmt.Println("Error: reference file has no sequences")
		os.Exit(1)
	}

	maxLen := 0
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}

	fmt.Printf("Generating synthetic training pairs from %d reference sequences...\n", len(seqs))
	features, labels, histK, histSize, comp, err := syndata.Generate(seqs, *threshold, syndata.Config{
		MinId:            cfg.Training.MinID,
		MutPerTemplate:   cfg.Training.MutationsPerTemp,
		BlockSize:        len(seqs),
		MinBlockSize:     cfg.Training.MinBlockSize,
		MaxBlockSize:     cfg.Training.MaxBlockSize,
		MutSingle:        true,
		MutBlock:         true,
		MutTranslocation: true,
		MutInversion:     true,
		KRelax:           cfg.Training.KRelax,
		ThreadNum:        cfg.Scoring.WorkerNum,
	})
	if err != nil {
		fmt.Printf("Error generating training data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Fitting classifier...")
	result, err := train.Run(features, labels, histK, histSize, comp, int64(maxLen), train.Config{
		MinFeatNum: cfg.Training.MinFeatNum,
		Patience:   cfg.Training.Patience,
	})
	if err != nil {
		fmt.Printf("Error training model: %v\n", err)
		os.Exit(1)
	}

	if err := model.Save(*output, result.Model); err != nil {
		fmt.Printf("Error saving model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Model trained and saved to %s\n", *output)
	fmt.Printf("  Features:    %d\n", result.FeatureNum)
	fmt.Printf("  Accuracy:    %.4f\n", result.Accuracy)
	fmt.Printf("  Sensitivity: %.4f\n", result.Sensitivity)
	fmt.Printf("  Specificity: %.4f\n", result.Specificity)
}

// handleScore compares two FASTA files (or a database against itself) and
// reports every pair at or above the threshold, using a trained model.
func handleScore(args []string) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	var (
		modelPath = fs.String("model", "", "trained model file (required)")
		database  = fs.String("database", "", "FASTA file to score (required)")
		query     = fs.String("query", "", "optional query FASTA file; scores database vs query")
		maxPairs  = fs.Int("max-pairs", 10000, "maximum number of result pairs to print")
	)
	fs.Parse(args)

	if *modelPath == "" || *database == "" {
		fmt.Println("Error: -model and -database are required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := config.LoadFromEnv()

	m, err := model.Load(*modelPath)
	if err != nil {
		fmt.Printf("Error loading model: %v\n", err)
		os.Exit(1)
	}
	pred, err := train.BuildPredictor(m, cfg.Scoring.Threshold, cfg.Scoring.CanSkip, cfg.Scoring.FastExactMode, cfg.Scoring.AlphaSize)
	if err != nil {
		fmt.Printf("Error building predictor: %v\n", err)
		os.Exit(1)
	}

	width, err := kmer.SelectWidth(int(m.MaxLength))
	if err != nil {
		fmt.Printf("Error selecting histogram width: %v\n", err)
		os.Exit(1)
	}

	scorer := scoring.NewScorer(pred, cfg.Scoring.Threshold, cfg.Scoring.WorkerNum)
	runner := scoring.NewAllVsAllRunner(scoring.RunnerConfig{
		K:         m.K,
		Width:     width,
		BlockSize: cfg.Cluster.BlockSize,
		WorkerNum: cfg.Scoring.WorkerNum,
	}, scorer)

	printed := 0
	truncated := false
	sink := func(queryHeader string, rows []scoring.Pair) error {
		for _, row := range rows {
			if printed >= *maxPairs {
				truncated = true
				return nil
			}
			fmt.Printf("%s\t%s\t%.6f\n", queryHeader, row.Target, row.Identity)
			printed++
		}
		return nil
	}

	if *query == "" {
		err = runner.RunAllVsAll(*database, sink)
	} else {
		err = runner.RunQueryVsAll(*database, *query, sink)
	}
	if err != nil {
		fmt.Printf("Error scoring: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%d pair(s) printed", printed)
	if truncated {
		fmt.Fprintf(os.Stderr, " (truncated at -max-pairs=%d)", *maxPairs)
	}
	fmt.Fprintln(os.Stderr)
}

// handleCluster runs streaming mean-shift clustering over a FASTA file
// using a trained model and prints the final cluster assignment.
func handleCluster(args []string) {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	var (
		modelPath = fs.String("model", "", "trained model file (required)")
		database  = fs.String("database", "", "FASTA file to cluster (required)")
		threshold = fs.Float64("threshold", 0, "identity threshold for cluster membership (default: configured scoring threshold)")
	)
	fs.Parse(args)

	if *modelPath == "" || *database == "" {
		fmt.Println("Error: -model and -database are required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := config.LoadFromEnv()

	m, err := model.Load(*modelPath)
	if err != nil {
		fmt.Printf("Error loading model: %v\n", err)
		os.Exit(1)
	}
	pred, err := train.BuildPredictor(m, cfg.Scoring.Threshold, cfg.Scoring.CanSkip, cfg.Scoring.FastExactMode, cfg.Scoring.AlphaSize)
	if err != nil {
		fmt.Printf("Error building predictor: %v\n", err)
		os.Exit(1)
	}

	effectiveThreshold := *threshold
	if effectiveThreshold <= 0 {
		effectiveThreshold = cfg.Scoring.Threshold
	}
	width, err := kmer.SelectWidth(int(m.MaxLength))
	if err != nil {
		fmt.Printf("Error selecting histogram width: %v\n", err)
		os.Exit(1)
	}

	large, err := meanshift.NewLarge(meanshift.LargeConfig{
		K:            m.K,
		Width:        width,
		BlockSize:    cfg.Cluster.BlockSize,
		VBlockSize:   cfg.Cluster.VBlockSize,
		PassNum:      cfg.Cluster.PassNum,
		Threshold:    effectiveThreshold,
		ErrorMargin:  m.AbsError,
		WorkerNum:    cfg.Cluster.WorkerNum,
		CanAssignAll: cfg.Cluster.CanAssignAll,
		CanRelax:     cfg.Cluster.CanRelax,
		CanEvaluate:  cfg.Cluster.CanEvaluate,
	}, pred, *database)
	if err != nil {
		fmt.Printf("Error initializing cluster pass: %v\n", err)
		os.Exit(1)
	}

	result, err := large.Assign()
	if err != nil {
		fmt.Printf("Error assigning clusters: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Cluster Assignment (%d sequences total) ===\n\n", result.Total)
	for _, c := range result.Clusters {
		fmt.Printf("Cluster %d (size %d, center %s):\n", c.Identifier(), c.Size(), c.Center())
		for _, h := range c.Headers() {
			fmt.Printf("  %s\n", h)
		}
	}
	if len(result.Singles) > 0 {
		fmt.Printf("\nSingletons (%d):\n", len(result.Singles))
		for _, c := range result.Singles {
			fmt.Printf("  %s\n", c.Center())
		}
	}
}

// handleServe starts the REST API server in the foreground.
func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		host      = fs.String("host", "", "REST server host (overrides config/env)")
		port      = fs.Int("port", 0, "REST server port (overrides config/env)")
		modelPath = fs.String("model", "", "trained model path (overrides config/env)")
	)
	fs.Parse(args)

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.REST.Host = *host
	}
	if *port > 0 {
		cfg.REST.Port = *port
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	server, err := rest.NewServer(rest.FromRESTConfig(cfg.REST), cfg)
	if err != nil {
		fmt.Printf("Error creating REST server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting REST server on %s\n", cfg.REST.Address())
	if err := server.Start(); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}

// readAllSequences reads every sequence out of a FASTA file.
func readAllSequences(path string) ([]string, error) {
	reader, err := fasta.NewReader(path, 1<<20, 0, 0)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var seqs []string
	for reader.IsStillReading() {
		records, err := reader.Read()
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			seqs = append(seqs, rec.Sequence)
		}
	}
	return seqs, nil
}

func showUsage() {
	fmt.Println(`Identity Toolchain CLI - sequence identity prediction and clustering

Usage:
  identity-cli <command> [options]

Commands:
  train     Generate synthetic training pairs from a reference FASTA file and fit a model
  score     Score sequence pairs from a FASTA file (or database vs query) against a trained model
  cluster   Cluster a FASTA file by predicted identity using mean-shift
  serve     Start the REST API server in the foreground
  version   Show version
  help      Show this help message

Examples:

  # Train a model from a reference set of sequences
  identity-cli train -reference ref.fasta -output identity.model -threshold 0.9

  # Score every pair in a database against itself
  identity-cli score -model identity.model -database sequences.fasta

  # Score a query file against a database file
  identity-cli score -model identity.model -database db.fasta -query queries.fasta

  # Cluster a database of sequences
  identity-cli cluster -model identity.model -database sequences.fasta -threshold 0.95

  # Start the REST API server
  identity-cli serve -port 8080 -model identity.model

Environment Variables (see pkg/config for the full list):
  IDENTITY_REST_PORT          REST server port
  IDENTITY_THRESHOLD          Default identity threshold
  IDENTITY_MODEL_PATH         Default trained model path

For more information, see DESIGN.md in the repository root.`)
}
