package main

import (
	"strings"

	"github.com/jmgilman/seed/acquire"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/spf13/cobra"
)

func (c *cli) batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <spec>=<destination>...",
		Short: "Fetch several repositories concurrently",
		Example: `  seed batch acme/starter=app github:acme/starter#v2/packages/web=web
  seed batch acme/api=api acme/ui=ui --concurrency 2 --prefer-offline`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.fetchOptions(cmd)
			if err != nil {
				return err
			}

			reqs := make([]acquire.Request, 0, len(args))
			for _, arg := range args {
				spec, dest, ok := strings.Cut(arg, "=")
				if !ok || spec == "" {
					return platformerrors.WithContext(
						platformerrors.Newf(platformerrors.CodeInvalidInput, "expected <spec>=<destination>, got %q", arg),
						"argument", arg)
				}
				if dest == "" {
					dest = defaultDestination(spec)
				}
				reqs = append(reqs, acquire.Request{Spec: spec, Destination: dest, Options: opts})
			}

			var acquireOpts []acquire.Option
			if cmd.Flags().Changed("concurrency") {
				n, _ := cmd.Flags().GetInt("concurrency")
				acquireOpts = append(acquireOpts, acquire.WithConcurrency(n))
			}

			store, err := c.store()
			if err != nil {
				return err
			}
			results := c.acquirer(store, acquireOpts...).AcquireAll(cmd.Context(), reqs)

			if err := c.printBatch(results); err != nil {
				return err
			}
			if failed := acquire.Failed(results); len(failed) > 0 {
				return platformerrors.WithContextMap(
					platformerrors.Newf(platformerrors.CodeExecutionFailed, "%d of %d acquisitions failed", len(failed), len(results)),
					map[string]interface{}{"failed": len(failed), "total": len(results)})
			}
			return nil
		},
	}

	addFetchFlags(cmd)
	cmd.Flags().IntP("concurrency", "j", 0, "maximum parallel acquisitions (default from config)")
	return cmd
}
