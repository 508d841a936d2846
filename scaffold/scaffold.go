// Package scaffold runs a generation: it validates the seed, resolves the
// placeholder table, renders the selected templates, checks them as a batch and
// hands the results to the emitter.
//
// Emission is all-or-nothing unless a request asks for partial output: when any
// template fails no file is written.
package scaffold

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/multierr"

	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/emit"
	"github.com/mohamedhabibwork/abp-script/placeholder"
	"github.com/mohamedhabibwork/abp-script/render"
	"github.com/mohamedhabibwork/abp-script/sync/fanout"
	"github.com/mohamedhabibwork/abp-script/validate"
)

// Batch is the ordered set of templates of one request with their output paths.
type Batch = validate.Batch

var (
	// ErrNoTemplates is returned when a request selects nothing.
	ErrNoTemplates = errors.New("no templates selected")
	// ErrNotEmitted marks a report whose outputs were held back because another
	// template of the batch failed.
	ErrNotEmitted = errors.New("nothing written")
)

// Request is one generation.
type Request struct {
	// Name labels the request in logs, the entity name when empty.
	Name      string
	Seed      placeholder.Seed
	Presets   []string
	Templates []string
	// Strict turns warnings into errors.
	Strict bool
	// Partial writes the templates that succeeded even when others failed.
	Partial bool
	// DryRun renders and validates without writing.
	DryRun         bool
	KeepBlankLines bool
}

func (r Request) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Seed.EntityName
}

// Output is one rendered template.
type Output struct {
	Template string
	// Path is the logical output path, slash separated.
	Path string
	Text string
	// Omitted lists the optional blocks that rendered as nothing.
	Omitted []string
	// Written is the file system path, empty when the output was not written.
	Written string
	// Shared names the request of the same batch that writes this identical
	// output.
	Shared string
}

// Report is the outcome of one request.
type Report struct {
	Table    *placeholder.Table
	Outputs  []Output
	Findings []validate.Finding
	// Errors are the failures that are not findings.
	Errors []error

	strict bool
}

// Blocking returns the findings that stop their template.
func (r *Report) Blocking() []validate.Finding {
	return validate.Errors(r.Findings, r.strict)
}

// Err combines every error and blocking finding, nil on success.
func (r *Report) Err() error {
	errs := append([]error{}, r.Errors...)
	for _, f := range r.Blocking() {
		errs = append(errs, f)
	}
	return multierr.Combine(errs...)
}

// Written returns the file system paths written.
func (r *Report) Written() []string {
	var out []string
	for _, o := range r.Outputs {
		if o.Written != "" {
			out = append(out, o.Written)
		}
	}
	return out
}

func (r *Report) fail(err error) {
	r.Errors = append(r.Errors, err)
}

type options struct {
	loader    *corpus.Loader
	validator *validate.Validator
	emitter   *emit.Emitter
	workers   int
	logger    log.Logger
}

// Option configures a Generator.
type Option func(*options)

// WithLoader sets the template corpus, the embedded one by default.
func WithLoader(l *corpus.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithValidator replaces the default validator.
func WithValidator(v *validate.Validator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithEmitter sets where outputs are written. Without one every request is a
// dry run.
func WithEmitter(e *emit.Emitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithWorkers sets how many requests GenerateAll runs at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger specifies the logger of the generator.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Generator runs requests against one corpus and one output root. It is safe
// for concurrent use.
type Generator struct {
	options *options
	log     *log.Helper
}

// New returns a generator.
func New(opts ...Option) *Generator {
	o := &options{
		workers: 1,
		logger:  log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.loader == nil {
		o.loader = corpus.Default()
	}
	if o.validator == nil {
		o.validator = validate.New()
	}
	return &Generator{
		options: o,
		log:     log.NewHelper(log.With(o.logger, "module", "scaffold")),
	}
}

// Loader returns the corpus the generator renders.
func (g *Generator) Loader() *corpus.Loader { return g.options.loader }

// Plan validates the seed, resolves the table and builds the batch of req
// without rendering anything. Failures are recorded in the report; the batch is
// nil when no table could be resolved.
func (g *Generator) Plan(req Request) (*Batch, *Report) {
	r := &Report{strict: req.Strict}
	if err := req.Seed.Validate(); err != nil {
		r.Errors = append(r.Errors, multierr.Errors(err)...)
		return nil, r
	}
	table, err := placeholder.Resolve(req.Seed)
	if err != nil {
		r.fail(err)
		return nil, r
	}
	r.Table = table

	names, err := g.options.loader.Select(req.Presets, req.Templates)
	if err != nil {
		r.fail(err)
		return nil, r
	}
	if len(names) == 0 {
		r.fail(errors.WithHint(ErrNoTemplates, "pass --preset or --template"))
		return nil, r
	}

	b := &Batch{Table: table}
	for _, name := range names {
		tpl, err := g.options.loader.Load(name)
		if err != nil {
			r.fail(err)
			continue
		}
		p, err := render.String(tpl.Name+" (output)", tpl.Output, table)
		// missing keys are reported by the validator
		if err != nil && !errors.Is(err, render.ErrMissingPlaceholder) {
			r.fail(err)
			continue
		}
		b.Items = append(b.Items, validate.Item{Template: tpl, Path: p})
	}
	r.Findings = g.options.validator.Validate(*b)
	return b, r
}

// Generate runs req. The report is never nil; Report.Err tells whether it
// succeeded.
func (g *Generator) Generate(ctx context.Context, req Request) *Report {
	jobs := []*job{g.prepare(ctx, req)}
	g.claim([]Request{req}, jobs)
	g.emit(ctx, req, jobs[0])
	return jobs[0].report
}

// job is a request between rendering and emission.
type job struct {
	report *Report
	// write is cleared when nothing of the request may be written.
	write bool
	// emit marks the outputs that passed the preflight.
	emit []bool
}

// held reports whether the outputs of a template must not be written.
func (r *Report) held() func(tpl string) bool {
	blocked := map[string]bool{}
	for _, f := range r.Blocking() {
		blocked[f.Template] = true
	}
	return func(tpl string) bool {
		return blocked[""] || blocked[tpl]
	}
}

func (g *Generator) prepare(ctx context.Context, req Request) *job {
	logger := g.log.WithContext(ctx)
	b, r := g.Plan(req)
	j := &job{report: r}
	if b == nil {
		logger.Errorf("%s: %v", req.label(), r.Err())
		return j
	}
	for _, f := range r.Findings {
		if f.Severity == validate.SeverityWarning && !req.Strict {
			logger.Warnf("%s: %s", req.label(), f.Error())
		}
	}

	var opts []render.Option
	if req.KeepBlankLines {
		opts = append(opts, render.KeepBlankLines())
	}
	held := r.held()
	for _, it := range b.Items {
		if held(it.Template.Name) {
			continue
		}
		res, err := render.Render(it.Template, b.Table, opts...)
		if err != nil {
			r.fail(err)
			continue
		}
		r.Outputs = append(r.Outputs, Output{
			Template: res.Template,
			Path:     it.Path,
			Text:     res.Text,
			Omitted:  res.Omitted,
		})
	}

	if (len(r.Errors) > 0 || len(r.Blocking()) > 0) && !req.Partial {
		logger.Errorf("%s: %d templates failed, %v", req.label(), len(b.Items)-len(r.Outputs), ErrNotEmitted)
		return j
	}
	if req.DryRun || g.options.emitter == nil {
		logger.Infof("%s: rendered %d templates (dry run)", req.label(), len(r.Outputs))
		return j
	}
	j.write = true
	return j
}

// claim settles, in request order and before anything is written, which
// request writes each output path. A path goes to the first request that
// produces it and passes the preflight. A later request rendering the same text
// shares the file; one rendering different text gets a duplicate-output
// finding. Either failure holds back the whole request unless it is partial.
func (g *Generator) claim(reqs []Request, jobs []*job) {
	type owner struct {
		label string
		text  string
	}
	owners := map[string]owner{}
	for i, j := range jobs {
		if !j.write {
			continue
		}
		r, req := j.report, reqs[i]
		held := r.held()
		for k := range r.Outputs {
			o := &r.Outputs[k]
			first, dup := owners[o.Path]
			switch {
			case held(o.Template) || !dup:
			case first.text == o.Text:
				o.Shared = first.label
			default:
				r.Findings = append(r.Findings, validate.Finding{
					Severity: validate.SeverityError,
					Code:     validate.CodeDuplicateOutput,
					Template: o.Template,
					Message: fmt.Sprintf("output %s is also produced by %s with different content; "+
						"generate module level templates for one entity only", o.Path, first.label),
				})
			}
		}

		// preflight so that a conflict late in the batch does not leave the
		// first files written
		held = r.held()
		j.emit = make([]bool, len(r.Outputs))
		for k, o := range r.Outputs {
			if held(o.Template) || o.Shared != "" {
				continue
			}
			if err := g.options.emitter.Check(o.Path); err != nil {
				r.fail(errors.Wrapf(err, "template %s", o.Template))
				continue
			}
			j.emit[k] = true
		}
		if r.Err() != nil && !req.Partial {
			j.write = false
			g.log.Errorf("%s: %v", req.label(), ErrNotEmitted)
			continue
		}
		for k, o := range r.Outputs {
			if _, taken := owners[o.Path]; j.emit[k] && !taken {
				owners[o.Path] = owner{label: req.label(), text: o.Text}
			}
		}
	}
}

func (g *Generator) emit(ctx context.Context, req Request, j *job) {
	if !j.write {
		return
	}
	r, e := j.report, g.options.emitter
	logger := g.log.WithContext(ctx)
	if err := ctx.Err(); err != nil {
		r.fail(errors.Wrap(err, "generation canceled"))
		logger.Errorf("%s: %v", req.label(), ErrNotEmitted)
		return
	}
	for k := range r.Outputs {
		if !j.emit[k] {
			continue
		}
		o := &r.Outputs[k]
		p, err := e.Emit(o.Path, []byte(o.Text))
		if err != nil {
			r.fail(errors.Wrapf(err, "template %s", o.Template))
			continue
		}
		o.Written = p
	}
	logger.Infof("%s: wrote %d files to %s", req.label(), len(r.Written()), e.Root())
}

// GenerateAll runs independent requests on the worker pool. All requests are
// rendered and their output paths settled before the first file is written.
// Reports are in request order.
func (g *Generator) GenerateAll(ctx context.Context, reqs []Request) []*Report {
	jobs := make([]*job, len(reqs))
	errs := g.each(ctx, reqs, func(ctx context.Context, i int) {
		jobs[i] = g.prepare(ctx, reqs[i])
	})
	for i, j := range jobs {
		if j == nil {
			err := errs[i]
			if err == nil {
				err = errors.New("job did not complete")
			}
			jobs[i] = &job{report: &Report{Errors: []error{errors.Wrapf(err, "request %s", reqs[i].label())}}}
		}
	}
	g.claim(reqs, jobs)
	errs = g.each(ctx, reqs, func(ctx context.Context, i int) {
		g.emit(ctx, reqs[i], jobs[i])
	})

	reports := make([]*Report, len(reqs))
	for i, j := range jobs {
		if errs[i] != nil && j.write {
			j.report.fail(errors.Wrapf(errs[i], "request %s", reqs[i].label()))
		}
		reports[i] = j.report
	}
	return reports
}

// each runs f for every request on a fresh pool and waits for all of them. f is
// not called for a request whose submit error is returned.
func (g *Generator) each(ctx context.Context, reqs []Request, f func(ctx context.Context, i int)) []error {
	pool := fanout.New("scaffold",
		fanout.WithWorker(g.options.workers),
		fanout.WithBuffer(len(reqs)+1),
		fanout.WithLogger(g.options.logger),
	)
	errs := make([]error, len(reqs))
	for i := range reqs {
		i := i
		errs[i] = pool.Submit(ctx, func(ctx context.Context) { f(ctx, i) })
	}
	_ = pool.Close()
	return errs
}
