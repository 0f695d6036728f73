// Package periodic runs background maintenance on a fixed interval with
// the Start, Stop and Run lifecycle used by the service's loops.
//
//	loop := periodic.New("session sweeper", time.Second, sweep,
//		periodic.WithClock(clk),
//		periodic.WithLogger(log),
//	)
//	g.Go(loop.Run(ctx))
package periodic
