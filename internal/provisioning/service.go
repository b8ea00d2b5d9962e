package provisioning

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/powervm-tools/lparvol/internal/config"
	"github.com/powervm-tools/lparvol/internal/hmc"
	"github.com/powervm-tools/lparvol/internal/locator"
)

// FeedSession is the REST side of the hybrid transport: a feed client with
// an explicit session release.
type FeedSession interface {
	locator.FeedClient
	Logoff(ctx context.Context)
}

// Service wires the configured transport and runs the saga once per
// Provision call. It owns the session lifecycle: the SSH session (and, in
// hybrid mode, the REST session) is released exactly once on every path,
// success or failure at any state.
type Service struct {
	Config   *config.Config
	Timeouts *config.Timeouts
	Logger   zerolog.Logger
	Metrics  *Metrics

	// NewSession and NewFeedSession are transport constructors,
	// replaceable in tests. Nil means the real SSH and REST clients.
	NewSession     func(ctx context.Context) (hmc.Session, error)
	NewFeedSession func(ctx context.Context) (FeedSession, error)
}

// Provision runs one provisioning saga against the configured HMC.
func (s *Service) Provision(ctx context.Context) (*Result, error) {
	session, err := s.connectSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	loc, release, err := s.buildLocator(ctx, session)
	if err != nil {
		return nil, err
	}
	defer release()

	runner := &Runner{
		Session:    session,
		Locator:    loc,
		Timeouts:   s.Timeouts,
		Signatures: s.Config.Signatures,
		Logger:     s.Logger,
		Metrics:    s.Metrics,
	}
	return runner.Run(ctx, Inputs{
		ManagedSystem: s.Config.ManagedSystem,
		LPARName:      s.Config.LPARName,
		VIOSName:      s.Config.VIOSName,
		VolumeName:    s.Config.VolumeName,
		VolumeGroup:   s.Config.VolumeGroup,
		DiskSizeGB:    s.Config.DiskSizeGB,
		VTDName:       s.Config.VTDName,
	})
}

func (s *Service) connectSession(ctx context.Context) (hmc.Session, error) {
	if s.NewSession != nil {
		return s.NewSession(ctx)
	}
	session, err := hmc.Connect(ctx, s.Config.HMCHost, hmc.Credentials{
		Username: s.Config.HMCAuth.Username,
		Password: s.Config.HMCAuth.Password,
	}, hmc.SSHOptions{
		ConnectTimeout: s.Timeouts.Connect,
		CommandTimeout: s.Timeouts.Command,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// buildLocator returns the locator for the configured transport plus a
// release func for any extra session the locator required.
func (s *Service) buildLocator(ctx context.Context, session hmc.Session) (locator.Locator, func(), error) {
	switch s.Config.Transport {
	case config.TransportCLI:
		return locator.NewCLILocator(session), func() {}, nil
	case config.TransportHybrid:
		feed, err := s.connectFeed(ctx)
		if err != nil {
			return nil, nil, err
		}
		release := func() { feed.Logoff(context.WithoutCancel(ctx)) }
		return locator.NewHybridLocator(feed, session), release, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", s.Config.Transport)
	}
}

func (s *Service) connectFeed(ctx context.Context) (FeedSession, error) {
	if s.NewFeedSession != nil {
		return s.NewFeedSession(ctx)
	}
	client := hmc.NewRESTClient(s.Config.HMCHost, hmc.RESTOptions{
		Port:      s.Config.REST.Port,
		VerifyTLS: s.Config.REST.VerifyTLS,
		Timeout:   s.Timeouts.REST,
	})
	if err := client.Logon(ctx, hmc.Credentials{
		Username: s.Config.HMCAuth.Username,
		Password: s.Config.HMCAuth.Password,
	}); err != nil {
		return nil, err
	}
	return client, nil
}
