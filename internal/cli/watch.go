package cli

import (
	"context"
	"io"
)

// WatchLayout reloads rt whenever its layout file changes and blocks until ctx is done.
// A layout that fails to load is reported and the current tree is kept.
func WatchLayout(ctx context.Context, rt *Runtime, out io.Writer) error {
	if rt.Loader == nil {
		<-ctx.Done()
		return nil
	}

	changes, err := rt.Loader.Watch(ctx)
	if err != nil {
		return err
	}
	rt.Logger.Info("Watching layout", "path", rt.Loader.Path())

	for range changes {
		if err := rt.Reload(ctx); err != nil {
			rt.Logger.Error("Layout reload failed", "path", rt.Loader.Path(), "err", err)
			printSystemMessage(out, "Layout '%s' is invalid, keeping the current tree: %v", rt.Loader.Path(), err)
			continue
		}
		rt.Logger.Info("Layout reloaded", "path", rt.Loader.Path(), "revision", rt.Engine.Revision())
		printSystemMessage(out, "Layout '%s' reloaded.", rt.Loader.Path())
	}
	return nil
}
