package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/moderation"
	"clipforge/internal/notify"
	"clipforge/internal/services"
)

var profilesPerItem = len(library.EncodeOrder)

// Pipeline runs one media item through probe, encoding and moderation.
type Pipeline struct {
	store      *library.Store
	layout     library.Layout
	hub        *notify.Hub
	prober     Prober
	encoder    Encoder
	classifier moderation.Classifier
	logger     *slog.Logger

	probeTimeout  time.Duration
	encodeTimeout time.Duration
}

// NewPipeline wires a pipeline against the real external tools named in the
// configuration.
func NewPipeline(cfg *config.Config, store *library.Store, hub *notify.Hub, logger *slog.Logger) *Pipeline {
	return NewPipelineWith(cfg, store, hub, logger,
		NewProber(cfg.FFprobeBinary()),
		ffmpeg.NewEncoder(cfg.FFmpegBinary()),
		moderation.NewFromConfig(cfg))
}

// NewPipelineWith accepts explicit stage adapters. Tests use it to substitute
// fakes for the external tools.
func NewPipelineWith(cfg *config.Config, store *library.Store, hub *notify.Hub, logger *slog.Logger, prober Prober, encoder Encoder, classifier moderation.Classifier) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		store:         store,
		layout:        library.NewLayout(cfg.Paths.MediaDir),
		hub:           hub,
		prober:        prober,
		encoder:       encoder,
		classifier:    classifier,
		logger:        logger.With(logging.String(logging.FieldComponent, "transcode")),
		probeTimeout:  time.Duration(cfg.Transcode.ProbeTimeout) * time.Second,
		encodeTimeout: time.Duration(cfg.Transcode.EncodeTimeout) * time.Second,
	}
}

// Run executes the full job for one item. It returns nil when the item
// reached a terminal state, including the failed state, and an error only
// when the run was cut short by context cancellation.
func (p *Pipeline) Run(ctx context.Context, itemID string) error {
	ctx = services.WithItemID(ctx, itemID)
	log := p.logger.With(logging.String(logging.FieldItemID, itemID))

	item, err := p.store.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Info("item removed before job start, skipping")
			return nil
		}
		return err
	}
	if item.Status != library.StatusPending {
		log.Info("item no longer pending, skipping", logging.String("status", string(item.Status)))
		return nil
	}

	if err := p.store.SetProcessing(ctx, itemID); err != nil {
		return p.abortOrFail(ctx, log, item, "start", err)
	}
	item.Status = library.StatusProcessing
	item.Progress = 0
	p.hub.Publish(item.TenantID, notify.StatusEvent(item))
	log.Info("processing started", logging.String("source", item.SourcePath))

	duration, err := p.probe(ctx, item)
	if err != nil {
		return p.abortOrFail(ctx, log, item, "probe", err)
	}
	if err := p.store.SetDuration(ctx, itemID, duration); err != nil {
		return p.abortOrFail(ctx, log, item, "probe", err)
	}
	log.Info("probe complete", logging.Float64("duration_seconds", duration))

	lastProgress := 0
	for i, quality := range library.EncodeOrder {
		if gone, err := p.itemGone(ctx, itemID); err != nil {
			return err
		} else if gone {
			return p.abandonDeleted(log, itemID)
		}

		variant, err := p.encodeVariant(ctx, log, item, quality, duration, i, &lastProgress)
		if err != nil {
			return p.abortOrFail(ctx, log, item, fmt.Sprintf("encode/%s", quality), err)
		}

		milestone := milestoneProgress(i + 1)
		if err := p.store.AppendVariant(ctx, itemID, variant, milestone); err != nil {
			return p.abortOrFail(ctx, log, item, fmt.Sprintf("encode/%s", quality), err)
		}
		if milestone > lastProgress {
			lastProgress = milestone
			p.hub.Publish(item.TenantID, notify.ProgressEvent(itemID, milestone))
		}
		log.Info("variant ready",
			logging.String(logging.FieldQuality, string(quality)),
			logging.Int("progress", milestone))
	}

	if gone, err := p.itemGone(ctx, itemID); err != nil {
		return err
	} else if gone {
		return p.abandonDeleted(log, itemID)
	}

	verdict, err := p.moderate(ctx, itemID)
	if err != nil {
		return p.abortOrFail(ctx, log, item, "moderation", err)
	}
	if err := p.store.SetVerdict(ctx, itemID, verdict); err != nil {
		return p.abortOrFail(ctx, log, item, "moderation", err)
	}

	final, err := p.store.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return p.abandonDeleted(log, itemID)
		}
		return err
	}
	p.hub.Publish(final.TenantID, notify.StatusEvent(final))
	log.Info("processing finished",
		logging.String("status", string(final.Status)),
		logging.String("sensitivity", string(final.Sensitivity)))
	return nil
}

func (p *Pipeline) probe(ctx context.Context, item *library.Item) (float64, error) {
	probeCtx, cancel := context.WithTimeout(services.WithStage(ctx, "probe"), p.probeTimeout)
	defer cancel()
	return p.prober.Probe(probeCtx, item.SourcePath)
}

func (p *Pipeline) encodeVariant(ctx context.Context, log *slog.Logger, item *library.Item, quality library.Quality, duration float64, index int, lastProgress *int) (library.Variant, error) {
	profile, ok := ffmpeg.ProfileFor(string(quality))
	if !ok {
		return library.Variant{}, services.Wrap(services.ErrEncode, "encode", "profile", fmt.Sprintf("no encoding profile for quality %q", quality), nil)
	}

	outputPath := p.layout.VariantPath(item.ID, quality)
	log.Info("encode started",
		logging.String(logging.FieldQuality, string(quality)),
		logging.Int("bitrate_kbps", profile.BitrateKbps))

	encodeCtx, cancel := context.WithTimeout(services.WithStage(ctx, "encode"), p.encodeTimeout)
	defer cancel()

	onProgress := func(percent float64) {
		overall := overallProgress(index, percent)
		if overall <= *lastProgress {
			return
		}
		if err := p.store.UpdateProgress(ctx, item.ID, overall); err != nil {
			return
		}
		*lastProgress = overall
		p.hub.Publish(item.TenantID, notify.ProgressEvent(item.ID, overall))
	}

	if err := p.encoder.Encode(encodeCtx, item.SourcePath, outputPath, profile, duration, onProgress); err != nil {
		return library.Variant{}, err
	}
	return library.Variant{
		Quality:     quality,
		BitrateKbps: profile.BitrateKbps,
		StoragePath: outputPath,
	}, nil
}

func (p *Pipeline) moderate(ctx context.Context, itemID string) (library.Verdict, error) {
	item, err := p.store.GetByID(ctx, itemID)
	if err != nil {
		return "", err
	}
	ordered := item.VariantsByBitrate()
	if len(ordered) == 0 {
		return "", services.Wrap(services.ErrModeration, "moderation", "select", "no variants available for analysis", nil)
	}
	verdict, err := p.classifier.Classify(ctx, ordered[0].StoragePath)
	if err != nil {
		return "", err
	}
	if verdict == moderation.VerdictFlagged {
		return library.VerdictFlagged, nil
	}
	return library.VerdictSafe, nil
}

// abortOrFail converges the item to the failed state unless it disappeared
// mid run, in which case the job cleans up silently.
func (p *Pipeline) abortOrFail(ctx context.Context, log *slog.Logger, item *library.Item, stage string, cause error) error {
	if errors.Is(cause, services.ErrNotFound) {
		return p.abandonDeleted(log, item.ID)
	}
	if ctx.Err() != nil {
		log.Warn("job interrupted by shutdown", logging.String(logging.FieldStage, stage))
		return ctx.Err()
	}

	log.Error("stage failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(cause))

	if err := p.store.MarkFailed(ctx, item.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return p.abandonDeleted(log, item.ID)
		}
		log.Error("unable to record failure", logging.Error(err))
		return nil
	}
	failed, err := p.store.GetByID(ctx, item.ID)
	if err == nil {
		p.hub.Publish(failed.TenantID, notify.StatusEvent(failed))
	}
	return nil
}

// abandonDeleted is reached when the item was deleted while its job ran.
// Any files written after the delete emptied the item directory are orphans,
// so the directory is removed again.
func (p *Pipeline) abandonDeleted(log *slog.Logger, itemID string) error {
	if err := os.RemoveAll(p.layout.ItemDir(itemID)); err != nil {
		log.Warn("unable to remove orphaned item directory", logging.Error(err))
	}
	log.Info("item deleted during processing, abandoning job")
	return nil
}

func (p *Pipeline) itemGone(ctx context.Context, itemID string) (bool, error) {
	_, err := p.store.GetByID(ctx, itemID)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, services.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// milestoneProgress is the persisted progress value after completed encodes.
func milestoneProgress(completed int) int {
	return int(math.Floor(float64(completed) / float64(profilesPerItem) * 100))
}

// overallProgress folds a single encode's percentage into the whole job.
// It never reaches the next milestone early.
func overallProgress(index int, percent float64) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	overall := int(math.Floor((float64(index) + percent/100) / float64(profilesPerItem) * 100))
	ceiling := milestoneProgress(index + 1)
	if overall >= ceiling {
		overall = ceiling - 1
	}
	if overall < 0 {
		overall = 0
	}
	return overall
}
