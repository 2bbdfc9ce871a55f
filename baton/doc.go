// Package baton bootstraps a relay application: it reads configuration from
// the environment, constructs the logger, session registry and dispatch
// server, wraps the whole in transport middleware, and runs the web server
// until a shutdown signal arrives.
//
// The minimal program:
//
//	b, err := baton.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	b.Server().Get("~/", homeHandler)
//	b.Run()
package baton
