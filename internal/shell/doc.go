// Package shell implements the interactive IndieGameStream console.
//
// The shell is a readline loop over the gateway router: "go dashboard",
// "go upload" and "go account" navigate like the web client would, with
// protected routes passing through the route guard. Catalog commands
// (games, refresh, delete, upload) act on the shared sync engine, so the
// list a user sees keeps updating while uploads are processed.
//
//	sh := shell.New(shell.Deps{Router: router, Catalog: engine, Account: manager})
//	if err := sh.Run(ctx); err != nil {
//	    return err
//	}
package shell
