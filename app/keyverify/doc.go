// Package keyverify assembles the license verification service.
//
// NewApp reads Config from the environment (or takes it through
// WithConfig), opens the product database named by DATABASE_URL, selects
// session and cooldown backends, and wires the flow engine to a channel
// command dispatcher. The session sweeper feeds expired ids into the same
// dispatcher as flow.ExpireSession messages.
//
// The chat platform adapter supplies flow.RoleProvisioner,
// flow.LicenseAuthority and flow.Presenter with options, calls Engine() for
// entry steps and Dispatch for button and menu answers:
//
//	app, err := keyverify.NewApp(ctx,
//		keyverify.WithRoleProvisioner(roles),
//		keyverify.WithLicenseAuthority(gumroad),
//		keyverify.WithPresenter(presenter),
//	)
//	if err != nil {
//		return err
//	}
//	return app.Run(ctx)
package keyverify
