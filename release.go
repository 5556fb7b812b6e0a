package herd

import (
	"context"
	"time"

	"github.com/herdlabs/herd/admission"
	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/task"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*releaseExtension)(nil)
	_ ext.TaskCompleted = (*releaseExtension)(nil)
	_ ext.TaskFailed    = (*releaseExtension)(nil)
	_ ext.TaskCancelled = (*releaseExtension)(nil)
	_ ext.TaskExpired   = (*releaseExtension)(nil)
)

// releaseExtension returns a task's admission slot when it reaches a
// terminal state. Admit happens in Submit; every terminal hook below is
// the matching release, so a class's in-flight count tracks tasks that
// are pending or running.
type releaseExtension struct {
	admission *admission.Manager
}

func (r *releaseExtension) Name() string { return "admission-release" }

func (r *releaseExtension) OnTaskCompleted(_ context.Context, snap task.Snapshot, _ time.Duration) error {
	r.admission.Release(snap.Class)
	return nil
}

func (r *releaseExtension) OnTaskFailed(_ context.Context, snap task.Snapshot, _ error) error {
	r.admission.Release(snap.Class)
	return nil
}

func (r *releaseExtension) OnTaskCancelled(_ context.Context, snap task.Snapshot) error {
	r.admission.Release(snap.Class)
	return nil
}

func (r *releaseExtension) OnTaskExpired(_ context.Context, snap task.Snapshot) error {
	r.admission.Release(snap.Class)
	return nil
}
