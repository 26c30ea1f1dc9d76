package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resave re-writes input through the engine with stream optimization.
func Resave(engine Engine, input, output string) error {
	doc, err := engine.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer doc.Close()

	if err := doc.Save(output, SaveOptions{Optimize: true}); err != nil {
		return fmt.Errorf("failed to save %s: %w", output, err)
	}
	return nil
}

// compress tries the external compressor first and falls back to Resave when
// it is missing or fails.
func (p *Processor) compress(ctx context.Context, log logrus.FieldLogger, o CompressOp) ([]string, error) {
	if p.deps.Compressor != nil {
		err := p.deps.Compressor.Compress(ctx, o.Input, o.Output)
		if err == nil {
			return []string{o.Output}, nil
		}
		if !errors.Is(err, ErrToolDisabled) {
			log.WithError(err).Warn("external compression failed, re-saving instead")
		}
	}

	if err := Resave(p.deps.Engine, o.Input, o.Output); err != nil {
		return nil, err
	}
	return []string{o.Output}, nil
}
