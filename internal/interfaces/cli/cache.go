package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// NewCacheCmd manages the redis record cache.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the redis record cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached record",
		Long: "Remove the normalized records cached under <redis.key_prefix>record:.\n" +
			"The next process or run normalizes every document again.",
		Args: cobra.NoArgs,
		RunE: runCachePurge,
	})
	return cmd
}

// CachePurgeSummary reports a cache purge.
type CachePurgeSummary struct {
	Prefix  string `json:"prefix"`
	Removed int64  `json:"removed"`
}

func (s *CachePurgeSummary) String() string {
	return fmt.Sprintf("removed %d cached records under %s", s.Removed, s.Prefix)
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if !cliCtx.Config.Redis.Enabled {
		return errors.New(errors.ErrCodeValidation, "redis is not enabled").
			WithDetail("set redis.enabled to use the record cache")
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	b := newBackends(cliCtx)
	defer b.Close()

	rc := b.recordCache()
	if rc == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "redis is unreachable").
			WithDetail("addr=" + cliCtx.Config.Redis.Addr)
	}
	removed, err := rc.Purge(ctx)
	if err != nil {
		return err
	}
	prefix := cliCtx.Config.Redis.KeyPrefix + "record:"
	b.log.Info("Purged record cache", logging.Int64("removed", removed), logging.String("prefix", prefix))
	return PrintResult(cmd, &CachePurgeSummary{Prefix: prefix, Removed: removed})
}
