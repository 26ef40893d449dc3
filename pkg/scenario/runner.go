package scenario

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corbinu/harmony-reflect/pkg/builtins"
	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// Run executes the scenario with a fresh registry. Every failing step
// contributes one error; later steps still run.
func (s *Scenario) Run(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := newEnv()
	target, err := e.buildTarget(s.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	e.target = vm.NewObjectValue(target)
	reg := proxy.NewRegistry()
	handler, err := e.buildHandler(s.Handler, reg)
	if err != nil {
		return fmt.Errorf("handler: %w", err)
	}

	p, err := proxy.NewFromHandler(reg, target, handler, proxy.WithLogger(logger))
	if s.Expect.Error != "" {
		if cerr := checkError(&s.Expect, err); cerr != nil {
			return fmt.Errorf("create: %w", cerr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	e.proxy = p.Value()

	global, err := builtins.NewGlobal(reg, logger)
	if err != nil {
		return err
	}
	object, err := global.Get("Object", vm.NewObjectValue(global))
	if err != nil {
		return err
	}
	r := &run{
		env:    e,
		proxy:  p,
		revoke: p.Validator().Revoke,
		target: target,
		object: object,
	}

	var errs error
	for i := range s.Steps {
		step := &s.Steps[i]
		got, err := r.exec(step)
		if cerr := r.check(&step.Expect, got, err); cerr != nil {
			errs = multierr.Append(errs, fmt.Errorf("step %d (%s %s): %w", i+1, step.Op, step.Name, cerr))
		}
	}
	return errs
}

// CompileFilter compiles a scenario name filter in ECMAScript syntax.
func CompileFilter(pattern string) (*regexp2.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	return re, nil
}

type Runner struct {
	logger   *zap.Logger
	filter   *regexp2.Regexp
	failFast bool
	parallel int
}

type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFilter runs only scenarios whose name matches re. A nil re matches
// everything.
func WithFilter(re *regexp2.Regexp) Option {
	return func(r *Runner) { r.filter = re }
}

// WithFailFast stops at the first failing scenario; the rest are skipped.
func WithFailFast(failFast bool) Option {
	return func(r *Runner) { r.failFast = failFast }
}

// WithParallel runs up to n scenarios at once. Each scenario owns its
// registry, so they share nothing. Values below 1 mean 1.
func WithParallel(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallel = n
		}
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop(), parallel: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Result struct {
	File     string
	Name     string
	Err      error
	Skipped  bool
	Duration time.Duration
}

func (r Result) Passed() bool { return !r.Skipped && r.Err == nil }

type Summary struct {
	Results  []Result
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

func (s *Summary) Total() int { return len(s.Results) }

// Err combines every failure, each prefixed with its scenario.
func (s *Summary) Err() error {
	var errs error
	for _, res := range s.Results {
		if res.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %s: %w", res.File, res.Name, res.Err))
		}
	}
	return errs
}

// Selected reports whether name passes the filter.
func (r *Runner) Selected(name string) (bool, error) {
	if r.filter == nil {
		return true, nil
	}
	return r.filter.MatchString(name)
}

// Run executes every selected scenario. Results keep file order whatever
// the parallelism.
func (r *Runner) Run(files []*File) *Summary {
	start := time.Now()

	var results []Result
	var scenarios []*Scenario
	for _, f := range files {
		for _, s := range f.Scenarios {
			results = append(results, Result{File: f.Path, Name: s.Name})
			scenarios = append(scenarios, s)
		}
	}

	var stopped atomic.Bool
	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i, s := range scenarios {
		res := &results[i]
		selected, err := r.Selected(s.Name)
		if err != nil {
			res.Err = err
			continue
		}
		if !selected {
			res.Skipped = true
			continue
		}
		g.Go(func() error {
			if stopped.Load() {
				res.Skipped = true
				return nil
			}
			t0 := time.Now()
			res.Err = s.Run(r.logger.With(zap.String("scenario", s.Name)))
			res.Duration = time.Since(t0)
			if res.Err != nil && r.failFast {
				stopped.Store(true)
			}
			return nil
		})
	}
	g.Wait()

	sum := &Summary{Results: results}
	for _, res := range results {
		switch {
		case res.Skipped:
			sum.Skipped++
		case res.Err != nil:
			sum.Failed++
			r.logger.Info("scenario failed", zap.String("file", res.File), zap.String("scenario", res.Name), zap.Error(res.Err))
		default:
			sum.Passed++
			r.logger.Debug("scenario passed", zap.String("scenario", res.Name), zap.Duration("duration", res.Duration))
		}
	}
	sum.Duration = time.Since(start)
	return sum
}
