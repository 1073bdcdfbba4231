package portal

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

func (s *Service) Dashboard(ctx context.Context, sess session.Session) (model.Dashboard, error) {
	const op = "dashboard"
	if err := requireAdmin(op, sess); err != nil {
		return model.Dashboard{}, err
	}
	d, err := s.client(sess).Dashboard(ctx)
	if err != nil {
		return model.Dashboard{}, s.fail(op, err, "Failed to load dashboard")
	}
	return d, nil
}

// Reports fetches the three admin reports together. Any failure fails all.
func (s *Service) Reports(ctx context.Context, sess session.Session) (model.Reports, error) {
	const op = "reports"
	if err := requireAdmin(op, sess); err != nil {
		return model.Reports{}, err
	}
	cl := s.client(sess)

	var out model.Reports
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.Adoptions, err = cl.AdoptionReport(gctx); return })
	g.Go(func() (err error) { out.Users, err = cl.UserReport(gctx); return })
	g.Go(func() (err error) { out.Pets, err = cl.PetReport(gctx); return })
	if err := g.Wait(); err != nil {
		return model.Reports{}, s.fail(op, err, "Failed to load reports")
	}
	return out, nil
}
