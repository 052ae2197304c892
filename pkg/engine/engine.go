package engine

import (
	"context"

	"github.com/mfigueroa/audex/pkg/models"
)

// ProgressFunc receives progress reports in [0,100]. Reports may arrive in
// any order; callers impose monotonicity.
type ProgressFunc func(percent int)

// Engine is the transcoding collaborator: an opaque asynchronous operation
// that extracts the audio stream from inputPath into outputPath. It may fail
// or hang; the scheduler guards it with a watchdog and a cancellable context.
type Engine interface {
	// ExtractAudio produces the output file and reports progress through
	// onProgress (which may be nil). It returns result metadata on success
	// and a descriptive error if the input lacks an audio stream or the
	// engine process fails.
	ExtractAudio(ctx context.Context, inputPath, outputPath string, onProgress ProgressFunc) (*models.Result, error)

	// Name returns the engine name
	Name() string
}
