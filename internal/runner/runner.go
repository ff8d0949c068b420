package runner

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/sznuper/reachable/internal/config"
	"github.com/sznuper/reachable/internal/notify"
	"github.com/sznuper/reachable/internal/platform"
	"github.com/sznuper/reachable/internal/probe"
)

// Observer is told about each step as the run progresses. Calls happen on
// the goroutine that called Run.
type Observer interface {
	Started(step Step, index, total int)
	Finished(res Result)
}

type nopObserver struct{}

func (nopObserver) Started(Step, int, int) {}
func (nopObserver) Finished(Result)        {}

// Runner orchestrates the plan → probe → verdict → notify pipeline.
type Runner struct {
	cfg     *config.Config
	backend platform.Backend
	net     Network
	logger  *slog.Logger

	now        func() time.Time
	lanAddress func() string
}

// New creates a Runner for cfg using the given OS backend and network probes.
func New(cfg *config.Config, backend platform.Backend, network Network, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		backend:    backend,
		net:        network,
		logger:     logger,
		now:        time.Now,
		lanAddress: probe.LANAddress,
	}
}

// Plan builds the check plan for the configured target.
func (r *Runner) Plan() Plan {
	tgt := r.cfg.Target
	lanIP := tgt.LocalIP
	if lanIP == "" {
		lanIP = r.lanAddress()
		if lanIP != "" {
			r.logger.Debug("detected LAN address", "ip", lanIP)
		}
	}
	return BuildPlan(tgt, &checks{
		tgt:     tgt,
		lanIP:   lanIP,
		backend: r.backend,
		net:     r.net,
		now:     r.now,
	})
}

// Run executes every step of the plan sequentially and returns the report.
// It always completes: probe faults and panics become Fail results.
func (r *Runner) Run(ctx context.Context, obs Observer) *Report {
	if obs == nil {
		obs = nopObserver{}
	}
	plan := r.Plan()
	began := time.Now()

	report := &Report{
		ID:        uuid.NewString(),
		Target:    r.cfg.Target.Domain,
		Hostname:  r.cfg.Hostname,
		Platform:  r.backend.Name(),
		StartedAt: r.now(),
	}
	r.logger.Info("starting run", "id", report.ID, "target", report.Target, "steps", len(plan.Steps))

	recorded := make(map[string]Result, len(plan.Steps))
	for i, step := range plan.Steps {
		obs.Started(step, i, len(plan.Steps))
		res := r.runStep(ctx, plan, step, recorded)
		recorded[step.ID] = res
		report.Results = append(report.Results, res)
		obs.Finished(res)
	}

	report.Verdict = Derive(report.Results)
	report.Hint = Hint(report.Verdict, report.Results)
	report.DurationMS = time.Since(began).Milliseconds()
	r.logger.Info("run completed", "verdict", report.Verdict, "duration", time.Since(began))
	return report
}

func (r *Runner) runStep(ctx context.Context, plan Plan, step Step, recorded map[string]Result) Result {
	log := r.logger.With("step", step.ID)

	if detail, ok := plan.Decide(step, recorded); !ok {
		log.Debug("step skipped", "reason", detail)
		return Result{ID: step.ID, Name: step.Name, Section: step.Section, Status: StatusSkipped, Detail: detail}
	}

	start := time.Now()
	res := safeProbe(ctx, step, maps.Clone(recorded))
	res.ID, res.Name, res.Section = step.ID, step.Name, step.Section
	res.DurationMS = time.Since(start).Milliseconds()

	switch {
	case res.fault:
		log.Warn("step error", "status", res.Status, "error", res.Error, "duration", time.Since(start))
	case res.Error != "":
		log.Info("step failed", "status", res.Status, "detail", res.Detail, "error", res.Error, "duration", time.Since(start))
	default:
		log.Debug("step finished", "status", res.Status, "detail", res.Detail, "duration", time.Since(start))
	}
	return res
}

func safeProbe(ctx context.Context, step Step, prior map[string]Result) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			res = Result{Status: StatusFail, Detail: "probe panicked", Error: fmt.Sprint(v), fault: true}
		}
	}()
	return step.Probe(ctx, prior)
}

// NotifyResult records what the notify stage did for one report.
type NotifyResult struct {
	Rendered map[string]string
	Notified []string
	Skipped  bool
	DryRun   bool
	Err      error
}

// Notify renders the configured messages for report and sends them, or only
// validates the senders when dryRun is set. Nothing is sent when the verdict
// is not listed in notify_on.
func (r *Runner) Notify(report *Report, dryRun bool) NotifyResult {
	result := NotifyResult{DryRun: dryRun}
	if len(r.cfg.Notify) == 0 {
		result.Skipped = true
		return result
	}

	data := notify.BuildTemplateData(
		map[string]any{"hostname": report.Hostname},
		map[string]string{
			"id":       report.ID,
			"target":   report.Target,
			"hostname": report.Hostname,
			"platform": report.Platform,
			"verdict":  string(report.Verdict),
			"hint":     report.Hint,
		},
		checkStatuses(report.Results),
	)

	tmpl := r.cfg.Template
	if tmpl == "" {
		tmpl = config.DefaultTemplate
	}
	targets, err := notify.ResolveTargets(mapNotifyRefs(r.cfg.Notify), mapServiceDefs(r.cfg.Services), tmpl, data)
	if err != nil {
		result.Err = err
		r.logger.Error("template failed", "error", err)
		return result
	}

	result.Rendered = make(map[string]string, len(targets))
	for _, t := range targets {
		result.Rendered[t.ServiceName] = t.Message
	}

	if !notify.ShouldNotify(string(report.Verdict), r.cfg.NotifyOn) {
		result.Skipped = true
		r.logger.Info("verdict not in notify_on, skipping notifications", "verdict", report.Verdict)
		return result
	}

	for _, t := range targets {
		if dryRun {
			if err := notify.Validate(t); err != nil {
				result.Err = err
				r.logger.Error("notify validation failed (dry-run)", "service", t.ServiceName, "error", err)
				return result
			}
			result.Notified = append(result.Notified, t.ServiceName)
			r.logger.Debug("would notify (dry-run)", "service", t.ServiceName, "message", t.Message)
			continue
		}

		r.logger.Info("sending notification", "service", t.ServiceName)
		if err := notify.Send(t); err != nil {
			result.Err = err
			r.logger.Error("notify failed", "service", t.ServiceName, "error", err)
			return result
		}
		result.Notified = append(result.Notified, t.ServiceName)
	}
	return result
}

func checkStatuses(results []Result) map[string]string {
	m := make(map[string]string, len(results))
	for _, res := range results {
		m[res.ID] = string(res.Status)
	}
	return m
}

func mapNotifyRefs(targets []config.NotifyTarget) []notify.NotifyRef {
	refs := make([]notify.NotifyRef, len(targets))
	for i, t := range targets {
		refs[i] = notify.NotifyRef{
			ServiceName: t.Service,
			Template:    t.Template,
			Params:      t.Params,
		}
	}
	return refs
}

func mapServiceDefs(services map[string]config.Service) map[string]notify.ServiceDef {
	defs := make(map[string]notify.ServiceDef, len(services))
	for name, svc := range services {
		defs[name] = notify.ServiceDef{
			URL:    svc.URL,
			Params: svc.Params,
		}
	}
	return defs
}
