// Package flow implements the multi-step product interactions: product
// registration, product removal and license verification.
//
// Every flow is a short chain of steps. An entry step (BeginAddProduct,
// BeginRemoveProduct, BeginVerify) authorizes the user and applies the
// cooldown before any session exists. A prompt step stores an
// interaction.Session with a deadline and returns. Each later step is an
// independent resumption that carries only the session id:
//
//	engine := flow.NewEngine(manager, catalog,
//		flow.WithCooldown(cooldown),
//		flow.WithRoleProvisioner(roles),
//		flow.WithLicenseAuthority(licenses),
//		flow.WithPresenter(presenter),
//	)
//	dispatcher.Register(engine.Handlers()...)
//
//	_ = dispatcher.Dispatch(ctx, flow.AutoCreateRole{SessionID: id, UserID: uid})
//
// A user answer and the sweeper's ExpireSession race for the same session;
// the store's atomic claim picks exactly one winner and the loser ends in
// StateAlreadyHandled without side effects.
//
// Steps present outcomes through a Presenter and return the resulting
// State. Business refusals (duplicate product, rejected license) are
// outcomes, not errors. Unexpected failures and panics produce a generic
// Failed outcome and are returned as errors.
package flow
