package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/sitecfg/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("WithSite adds site to context", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithSite(ctx, "file:///opt/app/")

		logging.FromContext(ctx).Info().Msg("reconciling")
		tl.AssertContains(t, `"site":"file:///opt/app/"`)
	})

	t.Run("WithFeature adds feature to context", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithFeature(ctx, "org.example.core@1.0.0")

		logging.FromContext(ctx).Info().Msg("demoted")
		tl.AssertContains(t, `"feature":"org.example.core@1.0.0"`)
	})

	t.Run("fields chain and do not leak to the parent", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		parent := logging.WithLogger(context.Background(), tl.Logger)
		ctx := logging.WithConfiguration(parent, "cfg-1")
		ctx = logging.WithOperation(ctx, "reconcile")

		logging.FromContext(ctx).Info().Msg("done")
		tl.AssertContains(t, `"configuration_id":"cfg-1"`)
		tl.AssertContains(t, `"operation":"reconcile"`)

		tl.Buffer.Reset()
		logging.FromContext(parent).Info().Msg("parent")
		assert.False(t, tl.Contains("cfg-1"))
	})

	t.Run("FromContext falls back to default", func(t *testing.T) {
		assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
		assert.Same(t, logging.Default(), logging.FromContext(logging.WithLogger(context.Background(), nil)))
	})
}
