package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/baxromumarov/rx"
	"github.com/baxromumarov/rx/metric"
	"github.com/baxromumarov/rx/source"
)

// Pipeline turns a validated Config into an observable of output lines.
type Pipeline struct {
	Config  *Config
	Stdin   io.Reader
	Metrics *metric.Metrics // optional
	Logger  logrus.FieldLogger
	Clock   rx.Option // optional, for tests
}

// Build assembles the source and every operator. Each stage is
// instrumented when Metrics is set.
func (p *Pipeline) Build() (*rx.Observable[string], error) {
	obs, err := p.source()
	if err != nil {
		return nil, err
	}
	obs = p.instrument(obs, "source")

	names := p.Config.StageNames()
	for i, op := range p.Config.Ops {
		obs, err = p.apply(obs, op)
		if err != nil {
			return nil, fmt.Errorf("ops[%d]: %w", i, err)
		}
		obs = p.instrument(obs, names[i])
	}
	return obs, nil
}

func (p *Pipeline) instrument(obs *rx.Observable[string], stage string) *rx.Observable[string] {
	if p.Metrics == nil {
		return obs
	}
	return metric.Instrument(obs, p.Metrics, stage, rx.WithLogger(p.Logger))
}

func (p *Pipeline) options() []rx.Option {
	opts := []rx.Option{rx.WithLogger(p.Logger)}
	if p.Clock != nil {
		opts = append(opts, p.Clock)
	}
	return opts
}

func (p *Pipeline) source() (*rx.Observable[string], error) {
	s := p.Config.Source
	srcOpts := []source.Option{source.WithLogger(p.Logger)}

	switch s.Kind {
	case "stdin":
		return source.Lines(p.Stdin, srcOpts...), nil
	case "file":
		return source.File(s.Path, srcOpts...), nil
	case "tcp":
		srcOpts = append(srcOpts, source.WithMaxConns(s.MaxConns))
		return rx.Map(source.Listen("tcp", s.Address, srcOpts...), func(m source.Message) string {
			return m.Text
		}), nil
	case "range":
		return rx.Map(rx.Range(s.Start, s.Count), strconv.Itoa), nil
	case "interval":
		obs := rx.Map(rx.Interval(s.Period.Std(), p.options()...), strconv.Itoa)
		if s.Count > 0 {
			obs = obs.Take(s.Count)
		}
		return obs, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", s.Kind)
}

func (p *Pipeline) apply(obs *rx.Observable[string], op OpConfig) (*rx.Observable[string], error) {
	d := op.Duration.Std()
	switch op.Op {
	case "filter":
		return obs.Filter(func(s string) bool { return strings.Contains(s, op.Contains) }), nil
	case "exclude":
		return obs.Filter(func(s string) bool { return !strings.Contains(s, op.Contains) }), nil
	case "map":
		fn, err := mapFunc(op.Func)
		if err != nil {
			return nil, err
		}
		return rx.Map(obs, fn), nil
	case "take":
		return obs.Take(op.N), nil
	case "skip":
		return obs.Skip(op.N), nil
	case "first":
		return obs.First(), nil
	case "last":
		return obs.Last(), nil
	case "distinct":
		return rx.Distinct(obs), nil
	case "count":
		return rx.Map(obs.Count(), strconv.Itoa), nil
	case "debounce":
		return obs.Debounce(d, p.options()...), nil
	case "sample":
		return obs.Sample(d, p.options()...), nil
	case "delay":
		return obs.Delay(d, p.options()...), nil
	case "buffer":
		return rx.Map(rx.BufferWithCount(obs, op.N), joiner(op.Sep)), nil
	case "buffer-time":
		return rx.Map(rx.BufferWithTime(obs, d, p.options()...), joiner(op.Sep)), nil
	case "retry":
		return obs.Retry(op.N, p.options()...), nil
	}
	return nil, fmt.Errorf("unknown op %q", op.Op)
}

func mapFunc(name string) (func(string) string, error) {
	switch name {
	case "upper":
		return strings.ToUpper, nil
	case "lower":
		return strings.ToLower, nil
	case "trim":
		return strings.TrimSpace, nil
	case "len":
		return func(s string) string { return strconv.Itoa(len(s)) }, nil
	}
	return nil, fmt.Errorf("unknown map func %q", name)
}

func joiner(sep string) func([]string) string {
	if sep == "" {
		sep = ","
	}
	return func(batch []string) string {
		return strings.Join(batch, sep)
	}
}
