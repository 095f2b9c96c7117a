package thimble

import (
	"context"
	"sort"
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthStatusUp      HealthStatus = "up"
	HealthStatusDown    HealthStatus = "down"
	HealthStatusUnknown HealthStatus = "unknown"
)

type HealthReport struct {
	Name    string
	Status  HealthStatus
	Error   error
	Latency time.Duration
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type ReadinessChecker interface {
	ReadinessCheck(ctx context.Context) error
}

// Live fails when any realized HealthChecker does.
func (e *Environment) Live(ctx context.Context) error {
	return firstDown(e.Health(ctx))
}

// Ready fails when any realized ReadinessChecker does.
func (e *Environment) Ready(ctx context.Context) error {
	return firstDown(e.runChecks(ctx, func(v any) (func(context.Context) error, bool) {
		rc, ok := v.(ReadinessChecker)
		if !ok {
			return nil, false
		}
		return rc.ReadinessCheck, true
	}))
}

// Health runs every realized HealthChecker concurrently. Instances that
// were never created are not created to be checked.
func (e *Environment) Health(ctx context.Context) []HealthReport {
	return e.runChecks(ctx, func(v any) (func(context.Context) error, bool) {
		hc, ok := v.(HealthChecker)
		if !ok {
			return nil, false
		}
		return hc.HealthCheck, true
	})
}

func (e *Environment) runChecks(
	ctx context.Context,
	checkOf func(v any) (func(context.Context) error, bool),
) []HealthReport {
	var reports []HealthReport
	var mu sync.Mutex
	var wg sync.WaitGroup

	for key, instance := range e.internal.Realized() {
		check, ok := checkOf(instance)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(k string, check func(context.Context) error) {
			defer wg.Done()

			start := time.Now()
			err := check(ctx)
			latency := time.Since(start)

			report := HealthReport{
				Name:    k,
				Latency: latency,
			}

			if err != nil {
				report.Status = HealthStatusDown
				report.Error = err
			} else {
				report.Status = HealthStatusUp
			}

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		}(key, check)
	}

	wg.Wait()
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports
}

func firstDown(reports []HealthReport) error {
	for _, r := range reports {
		if r.Status == HealthStatusDown {
			return errHealthCheckFailed(r.Name, r.Error)
		}
	}
	return nil
}

func errHealthCheckFailed(service string, cause error) *Error {
	return newError(
		ErrCodeHealthCheckFailed,
		"health check failed",
		cause,
	).WithService(service)
}
