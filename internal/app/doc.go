// Package app assembles the indiestream components.
//
// Construction follows the dependency order of the system: settings and
// the runtime configuration document are loaded first, then the session
// manager is created and initialized, and finally the gateway transport,
// route guard and catalog engine are wired on top of it.
//
//	application, err := app.NewApplication(ctx, app.NewConfig(debug, configDir))
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//
// There is no service registry; every component receives its collaborators
// through its constructor.
package app
