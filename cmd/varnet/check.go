package main

import (
	"context"
	"errors"
	"io"

	"github.com/efebarandurmaz/varnet/internal/qualitygate"
)

var errCheckFailed = errors.New("variable network check failed")

func runCheck(ctx context.Context, w io.Writer, configPath, inputPath string, flagTypes []string, asJSON bool) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	report, err := e.scan(ctx, flagTypes)
	if err != nil {
		return err
	}

	result := qualitygate.BuildPipeline(&e.cfg.Check).Run(qualitygate.NewEvalContext(report))
	e.logger.Info("Check complete", "status", result.Status, "failed", result.FailedCount, "warnings", result.WarningCount)

	if asJSON {
		err = writeJSON(w, result)
	} else {
		_, err = io.WriteString(w, qualitygate.FormatReport(result))
	}
	if err != nil {
		return err
	}
	if result.Failed() {
		return errCheckFailed
	}
	return nil
}
