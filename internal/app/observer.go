package app

import (
	"log/slog"
	"sync/atomic"

	"github.com/vk/modmotion/internal/backend"
)

// logObserver reports backend progress through the application logger. It
// throttles frame progress to every tenth of the total so long renders do
// not flood the log.
type logObserver struct {
	logger   *slog.Logger
	lastStep atomic.Int64
}

func (o *logObserver) StateChanged(s backend.State) {
	o.logger.Info("Backend state changed.", "state", string(s))
}

func (o *logObserver) Progress(done, total int) {
	if total <= 0 {
		return
	}
	step := int64(done * 10 / total)
	if o.lastStep.Swap(step) == step {
		return
	}
	o.logger.Info("Render progress.", "frames_done", done, "frames_total", total)
}
