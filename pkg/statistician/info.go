package statistician

import "github.com/bioinformaticstoolsmith/identity/pkg/feature"

// statInfo is one bank entry's fixed metadata: its human-readable name and
// whether it is a distance (lower is more similar) or a similarity (higher
// is more similar) measure. Order matches the Stat iota block exactly.
type statInfo struct {
	name       string
	isDistance bool
}

var infoTable = map[Stat]statInfo{
	Manhattan:               {"manhattan", true},
	Euclidean:               {"euclidean", true},
	ChiSquared:              {"chi_squared", true},
	Chebyshev:               {"chebyshev", true},
	Hamming:                 {"hamming", true},
	Minkowski:               {"minkowski", true},
	Cosine:                  {"cosine", true},
	Correlation:             {"correlation", true},
	BrayCurtis:              {"bray_curtis", true},
	SquaredChord:            {"squared_chord", true},
	Hellinger:               {"hellinger", true},
	CumulativeDiff:          {"cumulative_difference", true},
	EMD:                     {"emd", true},
	KLConditional:           {"kl_conditional", true},
	KDivergence:             {"k_divergence", true},
	JeffreyDivergence:       {"jeffrey_divergence", true},
	JensenShannonDivergence: {"jensen_shannon_divergence", true},
	RRE:                     {"rre", true},

	Intersection:  {"intersection", false},
	Kulczynski1:   {"kulczynski_1", false},
	Kulczynski2:   {"kulczynski_2", false},
	CovarianceR:   {"covariance_r", false},
	HarmonicMeanR: {"harmonic_mean_r", false},
	SimRatio:      {"sim_ratio", false},
	MarkovR:       {"markov_r", false},
	SimMM:         {"simMM", false},
	LengthRatio:   {"length_ratio", false},
	D2SR:          {"d2_s_r", false},
	D2Star:        {"d2_star", false},
}

// Name returns a statistic's conventional short name, or "" if s does not
// name a live statistic.
func Name(s Stat) string { return infoTable[s].name }

// IsDistance reports whether s is a distance measure (true) or a
// similarity measure (false).
func IsDistance(s Stat) bool { return infoTable[s].isDistance }

// AllFeatures builds one feature.Feature per live statistic, in AllStats()
// order, ready to seed the normalize/convert/expand training pipeline.
func AllFeatures() []*feature.Feature {
	stats := AllStats()
	out := make([]*feature.Feature, len(stats))
	for i, s := range stats {
		info := infoTable[s]
		out[i] = feature.NewSingle(int(s), info.name, info.isDistance)
	}
	return out
}
