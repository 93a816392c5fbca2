package hooks

import (
	"context"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/bundle"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/incremental"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/stamp"
)

// Names of the built-in hooks.
const (
	StampBuildNumber = "stamp-build-number"
	BundleAssets     = "bundle-assets"
)

// Host actions the built-in hooks attach to.
const (
	ActionUpload    = "upload"
	ActionBuild     = "build"
	ActionBuildProg = "buildprog"
	ActionBuildFS   = "buildfs"
)

// Default returns the registry fwhook serves host callbacks from: the stamper
// before every upload, the bundler before every firmware or filesystem build.
func Default() *Registry {
	r := NewRegistry()
	r.Register(PhasePre, ActionUpload, StampBuildNumber, stampHook)
	r.Register(PhasePre, ActionBuild, BundleAssets, bundleHook)
	r.Register(PhasePre, ActionBuildProg, BundleAssets, bundleHook)
	r.Register(PhasePre, ActionBuildFS, BundleAssets, bundleHook)
	return r
}

func stampHook(ctx context.Context, env *Env) error {
	_, err := Stamp(ctx, env)
	return err
}

func bundleHook(ctx context.Context, env *Env) error {
	_, err := Bundle(ctx, env)
	return err
}

// Stamp runs the build-number stamper with env's configuration.
func Stamp(ctx context.Context, env *Env) (stamp.Record, error) {
	cfg := env.config()
	policy := stamp.PolicyReset
	if cfg.StrictStamp() {
		policy = stamp.PolicyStrict
	}

	s := stamp.New(stamp.Options{
		Path:      env.Path(cfg.StampPath()),
		Marker:    cfg.StampMarker(),
		Format:    cfg.Stamp.Format,
		GoPackage: cfg.Stamp.GoPackage,
		Policy:    policy,
		Now:       env.Now,
		Logger:    env.logger(),
	})
	return s.Stamp(ctx)
}

// Bundle runs the asset bundler with env's configuration, then records the
// source tree as the snapshot `fwhook status` compares against. A snapshot
// failure is logged and does not fail the build.
func Bundle(ctx context.Context, env *Env) (*bundle.Result, error) {
	cfg := env.config()
	log := env.logger()

	res, err := bundle.Bundle(ctx, bundle.Options{
		Source:     env.Path(cfg.Bundle.Source),
		Output:     env.Path(cfg.Bundle.Output),
		Extensions: cfg.Bundle.Extensions,
		Exclude:    cfg.Bundle.Exclude,
		Level:      cfg.Bundle.Level,
		Brotli:     cfg.BrotliEnabled(),
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	if res.SourceMissing {
		return res, nil
	}

	tracker := incremental.NewTracker(env.ProjectDir, cfg.Bundle.Source, cfg.Bundle.Extensions, cfg.Bundle.Exclude...)
	if err := tracker.Refresh(ctx); err != nil {
		log.Warn("failed to save asset snapshot", "error", err)
	}
	return res, nil
}
