package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/agentstation/sitecfg/pkg/errors"
)

func TestExitCode(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error", err: cause, want: ExitFailure},
		{name: "canceled", err: fmt.Errorf("%w: %w", errors.ErrCanceled, context.Canceled), want: ExitInterrupted},
		{name: "lock held", err: fmt.Errorf("%w: /tmp/sitecfg.lock: %w", errors.ErrLocked, context.DeadlineExceeded), want: ExitTempFail},
		{name: "unparseable platform", err: errors.NewSnapshotError("", errors.WrapParse("yaml", "platform.yaml", cause)), want: ExitDataErr},
		{name: "unreadable site", err: errors.NewSnapshotError("platform:/base/", errors.WrapIO("read", "/opt/app/features", cause)), want: ExitIOErr},
		{name: "store write", err: errors.NewStoreError(errors.StoreOpWrite, "/var/lib/sitecfg", cause), want: ExitIOErr},
		{name: "snapshot", err: errors.WrapSnapshot("platform:/base/", cause), want: ExitUnavailable},
		{name: "config", err: errors.NewConfigError("watch", "no paths", nil), want: ExitConfig},
		{name: "validation", err: errors.NewValidationError("platform", "", "required"), want: ExitUsage},
		{name: "resource", err: errors.WrapResource("digest", "configuration", "cfg-1", cause), want: ExitSoftware},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
