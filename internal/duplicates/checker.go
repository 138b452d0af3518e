package duplicates

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"docintake/internal/fileutil"
	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/textutil"
)

// Index supplies the stored documents to compare against.
type Index interface {
	Candidates(ctx context.Context) ([]intake.StoredDocument, error)
}

// Probe is the incoming document as seen by a Scorer.
type Probe struct {
	ContentHash string
	Fingerprint *textutil.Fingerprint
}

// Scorer rates how closely a stored document matches the probe, returning a
// percentage in [0, 100] and the match type.
type Scorer interface {
	Score(probe Probe, candidate intake.StoredDocument) (float64, string)
}

// Thresholds are the duplicate policy percentages.
type Thresholds struct {
	Block float64
	Warn  float64
}

// Checker is the default DuplicateChecker.
type Checker struct {
	index      Index
	scorer     Scorer
	thresholds Thresholds
	logger     *slog.Logger
}

// NewChecker wires a checker. A nil scorer selects FingerprintScorer.
func NewChecker(index Index, scorer Scorer, thresholds Thresholds, logger *slog.Logger) *Checker {
	if scorer == nil {
		scorer = FingerprintScorer{}
	}
	return &Checker{
		index:      index,
		scorer:     scorer,
		thresholds: thresholds,
		logger:     logging.NewComponentLogger(logger, "duplicates"),
	}
}

// SetLogger swaps the per-run logger.
func (c *Checker) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "duplicates")
}

// Check scores the document against the index and applies the thresholds.
func (c *Checker) Check(ctx context.Context, doc intake.Document, _ intake.DenoiseOutput, text string) (intake.DuplicateVerdict, error) {
	if c.index == nil {
		return intake.DuplicateVerdict{}, fmt.Errorf("duplicate index unavailable")
	}
	candidates, err := c.index.Candidates(ctx)
	if err != nil {
		return intake.DuplicateVerdict{}, fmt.Errorf("load candidates: %w", err)
	}
	probe := Probe{
		ContentHash: fileutil.HashBytes(doc.Content),
		Fingerprint: textutil.NewFingerprint(text),
	}

	matches := make([]intake.DuplicateMatch, 0)
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return intake.DuplicateVerdict{}, err
		}
		if candidate.ID == doc.ID {
			continue
		}
		percent, matchType := c.scorer.Score(probe, candidate)
		severity, keep := c.classify(percent)
		if !keep {
			continue
		}
		matches = append(matches, intake.DuplicateMatch{
			DocumentID:        candidate.ID,
			Name:              candidate.Name,
			SimilarityPercent: percent,
			MatchType:         matchType,
			Severity:          severity,
			Owner:             candidate.Owner,
			Path:              candidate.Path,
			UploadDate:        candidate.UploadedAt,
		})
	}
	SortMatches(matches)

	verdict := intake.DuplicateVerdict{Matches: matches}
	for _, m := range matches {
		if m.Severity == intake.SeverityBlocking {
			verdict.IsDuplicate = true
			verdict.Blocking = true
			break
		}
	}
	c.logger.Debug("duplicate check scored",
		logging.Int("candidates", len(candidates)),
		logging.Int("matches", len(matches)),
		logging.Bool("blocking", verdict.Blocking),
	)
	return verdict, nil
}

func (c *Checker) classify(percent float64) (intake.Severity, bool) {
	switch {
	case percent > c.thresholds.Block:
		return intake.SeverityBlocking, true
	case percent > c.thresholds.Warn:
		return intake.SeverityWarning, true
	default:
		return "", false
	}
}

// SortMatches orders matches by similarity descending; ties go to the earliest
// upload, then to the document ID.
func SortMatches(matches []intake.DuplicateMatch) {
	slices.SortStableFunc(matches, func(a, b intake.DuplicateMatch) int {
		if c := cmp.Compare(b.SimilarityPercent, a.SimilarityPercent); c != 0 {
			return c
		}
		if c := a.UploadDate.Compare(b.UploadDate); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
}

// ApplyDecision returns the verdict adjusted for the caller's duplicate
// decision. proceed and new_version downgrade blocking matches to warnings.
func ApplyDecision(verdict intake.DuplicateVerdict, decision intake.DuplicateDecision) intake.DuplicateVerdict {
	verdict.Decision = string(decision)
	if !verdict.Blocking || !decision.Overrides() {
		return verdict
	}
	matches := slices.Clone(verdict.Matches)
	for i := range matches {
		if matches[i].Severity == intake.SeverityBlocking {
			matches[i].Severity = intake.SeverityWarning
		}
	}
	verdict.Matches = matches
	verdict.Blocking = false
	return verdict
}

// FingerprintScorer scores by exact hash first, then cosine similarity of the
// stored fingerprint.
type FingerprintScorer struct{}

// Score implements Scorer.
func (FingerprintScorer) Score(probe Probe, candidate intake.StoredDocument) (float64, string) {
	if probe.ContentHash != "" && probe.ContentHash == candidate.ContentHash {
		return 100, intake.MatchExact
	}
	stored := textutil.DecodeFingerprint(candidate.Fingerprint)
	if stored == nil && candidate.Text != "" {
		stored = textutil.NewFingerprint(candidate.Text)
	}
	similarity := probe.Fingerprint.Similarity(stored)
	return math.Round(similarity*1000) / 10, intake.MatchSimilar
}
