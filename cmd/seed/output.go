package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmgilman/seed/acquire"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/git/cache"
)

func (c *cli) encode(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printResult(res *acquire.DownloadResult) error {
	if c.jsonOut {
		return c.encode(res)
	}

	source := "downloaded"
	if res.CacheHit {
		source = "from cache"
	}
	_, err := fmt.Fprintf(c.stdout, "%s -> %s (%s, %s, %s, %s)\n",
		res.SourceSpec, res.LocalPath, shortRevision(res.Revision), source,
		humanize.Bytes(uint64(res.Size)), res.Duration.Round(time.Millisecond))
	return err
}

type batchItem struct {
	Spec        string                        `json:"spec"`
	Destination string                        `json:"destination"`
	Result      *acquire.DownloadResult       `json:"result,omitempty"`
	Error       *platformerrors.ErrorResponse `json:"error,omitempty"`
}

func (c *cli) printBatch(results []acquire.BatchResult) error {
	if c.jsonOut {
		items := make([]batchItem, len(results))
		for i, r := range results {
			items[i] = batchItem{
				Spec:        r.Request.Spec,
				Destination: r.Request.Destination,
				Result:      r.Result,
				Error:       platformerrors.ToJSON(r.Err),
			}
		}
		return c.encode(items)
	}

	for _, r := range results {
		if r.Err != nil {
			if _, err := fmt.Fprintf(c.stdout, "%s -> %s FAILED: %v\n", r.Request.Spec, r.Request.Destination, r.Err); err != nil {
				return err
			}
			continue
		}
		if err := c.printResult(r.Result); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) printEntries(entries []*cache.EntryMetadata) error {
	if c.jsonOut {
		if entries == nil {
			entries = []*cache.EntryMetadata{}
		}
		return c.encode(entries)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tREVISION\tLAST USED\tURL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key(), shortRevision(e.Revision), humanize.Time(e.LastAccess), e.URL)
	}
	return w.Flush()
}

func (c *cli) printStats(root string, stats *cache.Stats) error {
	if c.jsonOut {
		return c.encode(struct {
			Root string `json:"root"`
			*cache.Stats
		}{root, stats})
	}

	fmt.Fprintf(c.stdout, "Root:     %s\n", root)
	fmt.Fprintf(c.stdout, "Entries:  %d\n", stats.Entries)
	fmt.Fprintf(c.stdout, "Size:     %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	if stats.OldestAccess != nil {
		fmt.Fprintf(c.stdout, "Oldest:   %s\n", humanize.Time(*stats.OldestAccess))
		fmt.Fprintf(c.stdout, "Newest:   %s\n", humanize.Time(*stats.NewestAccess))
	}
	return nil
}

// printError reports err on stderr, as JSON when requested.
func (c *cli) printError(err error) {
	if c.jsonOut {
		enc := json.NewEncoder(c.stderr)
		_ = enc.Encode(platformerrors.ToJSON(err))
		return
	}
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
