package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/labbench/internal/ctxlog"
	"github.com/specialistvlad/labbench/internal/wordcount"
)

// RunVerify recomputes word counts from the text and compares the reducer
// result against them. The report is always printed; in strict mode a
// mismatch is returned as ErrNotExactMatch.
func (a *App) RunVerify(ctx context.Context, cfg *VerifyConfig) error {
	ctx = a.withLogger(ctx, "verify")
	logger := ctxlog.FromContext(ctx)
	opener := a.opener(cfg.Region)

	raw, err := opener.ReadAll(ctx, cfg.ResultPath)
	if err != nil {
		return err
	}
	reduced, err := wordcount.DecodeResult(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.ResultPath, err)
	}
	logger.Debug("Reducer result decoded.", "path", cfg.ResultPath, "words", len(reduced))

	text, err := opener.ReadAll(ctx, cfg.TextPath)
	if err != nil {
		return err
	}
	truth := wordcount.Tokenize(string(text))
	logger.Debug("Ground truth computed.", "path", cfg.TextPath, "words", truth.Len())

	res := wordcount.Compare(truth, reduced, cfg.MaxReport)
	if err := res.WriteReport(a.outW); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.Strict && !res.Passed() {
		return fmt.Errorf("%w: %d words differ", ErrNotExactMatch, res.Mismatched)
	}
	return nil
}
