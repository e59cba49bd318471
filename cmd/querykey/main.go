// Command querykey builds a filter and downsampler from flags, validates
// them, and prints their fingerprints, JSON form and PromQL translation.
//
//	querykey -id cpu_web -tags '{host=web*}{dc=lga}' -interval 1m -agg avg -metric sys.cpu.user -aggregate sum
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ata-marzban/tsdb-query-keys/internal/fill"
	"github.com/ata-marzban/tsdb-query-keys/internal/promql"
	"github.com/ata-marzban/tsdb-query-keys/internal/query"
	"github.com/ata-marzban/tsdb-query-keys/internal/tagfilter"
	"github.com/ata-marzban/tsdb-query-keys/internal/wire"
)

type options struct {
	id        string
	tags      string
	explicit  bool
	interval  string
	agg       string
	fill      string
	fillValue float64
	metric    string
	aggregate string
}

func main() {
	var o options
	flag.StringVar(&o.id, "id", "", "filter id")
	flag.StringVar(&o.tags, "tags", "", "tag filters, e.g. {host=web*}{dc=literal_or(lga|phx)}")
	flag.BoolVar(&o.explicit, "explicit", false, "match series with exactly the filtered tag keys")
	flag.StringVar(&o.interval, "interval", "", "downsample interval, e.g. 1m")
	flag.StringVar(&o.agg, "agg", "", "downsample aggregator, e.g. avg")
	flag.StringVar(&o.fill, "fill", "", "fill policy (none, nan, null, zero, scalar)")
	flag.Float64Var(&o.fillValue, "fill-value", math.NaN(), "fill value for the scalar policy")
	flag.StringVar(&o.metric, "metric", "", "metric name for the PromQL translation")
	flag.StringVar(&o.aggregate, "aggregate", "", "cross-series aggregator for the PromQL translation")
	flag.Parse()

	if err := run(os.Stdout, o); err != nil {
		fmt.Fprintln(os.Stderr, "querykey:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, o options) error {
	var f *query.Filter
	if o.id != "" || o.tags != "" {
		tags, err := tagfilter.ParseSpec(o.tags)
		if err != nil {
			return err
		}
		f, err = query.NewFilterBuilder().
			SetID(o.id).
			SetTags(tags).
			SetExplicitTags(o.explicit).
			Build()
		if err != nil {
			return err
		}
		if err := f.Validate(); err != nil {
			return err
		}
		data, err := wire.EncodeFilter(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "filter       %s %s\n", f.Fingerprint(), data)
	}

	var d *query.Downsampler
	if o.interval != "" || o.agg != "" {
		b := query.NewDownsamplerBuilder().SetInterval(o.interval).SetAggregator(o.agg)
		if o.fill != "" {
			fb := fill.NewBuilder().SetKind(fill.Kind(o.fill))
			if !math.IsNaN(o.fillValue) {
				fb.SetValue(o.fillValue)
			}
			b.SetFillPolicy(fb.Build())
		}
		d = b.Build()
		if err := d.Validate(); err != nil {
			return err
		}
		data, err := wire.EncodeDownsampler(d)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "downsampler  %s %s\n", d.Fingerprint(), data)
	}

	if o.metric != "" {
		expr, err := promql.Translate(o.metric, f, d, o.aggregate)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "promql       %s\n", expr)
	}
	return nil
}
